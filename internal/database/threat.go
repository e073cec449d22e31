package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bigr-systems/guardian/internal/threat"
)

func joinCSV(vals []string) string { return strings.Join(vals, ",") }

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// LoadThreatFeeds returns every registered feed, for seeding
// threat.Store.LoadFeeds at startup.
func (db *DB) LoadThreatFeeds() ([]*threat.Feed, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, name, url, feed_type, enabled, last_synced_at, entries_count, created_at, updated_at
		FROM threat_feeds`)
	if err != nil {
		return nil, fmt.Errorf("query threat_feeds: %w", err)
	}
	defer rows.Close()

	var out []*threat.Feed
	for rows.Next() {
		f := &threat.Feed{}
		var lastSynced sql.NullTime
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.FeedType, &f.Enabled, &lastSynced,
			&f.EntriesCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan threat_feeds row: %w", err)
		}
		if lastSynced.Valid {
			f.LastSyncedAt = lastSynced.Time
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertThreatFeed persists a feed's registration/sync metadata, keyed
// by name, matching Store.EnsureFeed/RecordFeedSync's semantics.
func (db *DB) UpsertThreatFeed(f *threat.Feed) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var lastSynced any
	if !f.LastSyncedAt.IsZero() {
		lastSynced = f.LastSyncedAt
	}

	res, err := db.conn.Exec(`
		INSERT INTO threat_feeds (name, url, feed_type, enabled, last_synced_at, entries_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			feed_type = excluded.feed_type,
			enabled = excluded.enabled,
			last_synced_at = excluded.last_synced_at,
			entries_count = excluded.entries_count,
			updated_at = excluded.updated_at`,
		f.Name, f.URL, f.FeedType, f.Enabled, lastSynced, f.EntriesCount, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert threat_feeds: %w", err)
	}
	if f.ID == 0 {
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			f.ID = id
		}
	}
	return nil
}

// LoadThreatIndicators returns every non-expired indicator, for
// seeding threat.Store.LoadIndicators at startup. Expired rows are
// skipped rather than loaded and immediately swept.
func (db *DB) LoadThreatIndicators(now time.Time) ([]*threat.Indicator, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT subnet_hash, subnet_prefix, threat_score, source_feeds, indicator_types, cve_refs,
		       first_seen, last_seen, report_count, expires_at
		FROM threat_indicators WHERE expires_at > ?`, now)
	if err != nil {
		return nil, fmt.Errorf("query threat_indicators: %w", err)
	}
	defer rows.Close()

	var out []*threat.Indicator
	for rows.Next() {
		ind := &threat.Indicator{}
		var feedsCSV, typesCSV, cvesCSV string
		if err := rows.Scan(&ind.SubnetHash, &ind.SubnetPrefix, &ind.ThreatScore, &feedsCSV, &typesCSV, &cvesCSV,
			&ind.FirstSeen, &ind.LastSeen, &ind.ReportCount, &ind.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan threat_indicators row: %w", err)
		}
		ind.SourceFeeds = splitCSV(feedsCSV)
		ind.IndicatorTypes = splitCSV(typesCSV)
		ind.CVERefs = splitCSV(cvesCSV)
		out = append(out, ind)
	}
	return out, rows.Err()
}

// UpsertThreatIndicator persists an indicator after Store.Upsert
// merges it in memory.
func (db *DB) UpsertThreatIndicator(ind threat.Indicator) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`
		INSERT INTO threat_indicators (subnet_hash, subnet_prefix, threat_score, source_feeds, indicator_types,
			cve_refs, first_seen, last_seen, report_count, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subnet_hash) DO UPDATE SET
			subnet_prefix = excluded.subnet_prefix,
			threat_score = excluded.threat_score,
			source_feeds = excluded.source_feeds,
			indicator_types = excluded.indicator_types,
			cve_refs = excluded.cve_refs,
			last_seen = excluded.last_seen,
			report_count = excluded.report_count,
			expires_at = excluded.expires_at`,
		ind.SubnetHash, ind.SubnetPrefix, ind.ThreatScore, joinCSV(ind.SourceFeeds), joinCSV(ind.IndicatorTypes),
		joinCSV(ind.CVERefs), ind.FirstSeen, ind.LastSeen, ind.ReportCount, ind.ExpiresAt)
	return err
}

// SweepExpiredThreatIndicators deletes every indicator whose
// expires_at has passed, mirroring Store.SweepExpired.
func (db *DB) SweepExpiredThreatIndicators(now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`DELETE FROM threat_indicators WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep threat_indicators: %w", err)
	}
	return res.RowsAffected()
}
