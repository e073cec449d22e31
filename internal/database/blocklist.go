package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bigr-systems/guardian/internal/blocklist"
)

// LoadBlocklistSources returns every registered blocklist source, for
// seeding blocklist.Store.RegisterSource at startup.
func (db *DB) LoadBlocklistSources() ([]*blocklist.Source, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, name, url, format, category, domain_count, enabled, etag, last_updated
		FROM guardian_blocklists`)
	if err != nil {
		return nil, fmt.Errorf("query guardian_blocklists: %w", err)
	}
	defer rows.Close()

	var out []*blocklist.Source
	for rows.Next() {
		src := &blocklist.Source{}
		var format string
		var lastUpdated sql.NullTime
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &format, &src.Category,
			&src.DomainCount, &src.Enabled, &src.ETag, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scan guardian_blocklists row: %w", err)
		}
		src.Format = blocklist.Format(format)
		if lastUpdated.Valid {
			src.LastUpdated = lastUpdated.Time
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// UpsertBlocklistSource inserts or updates a source's metadata row,
// keyed by name.
func (db *DB) UpsertBlocklistSource(src *blocklist.Source) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var lastUpdated any
	if !src.LastUpdated.IsZero() {
		lastUpdated = src.LastUpdated
	}

	res, err := db.conn.Exec(`
		INSERT INTO guardian_blocklists (name, url, format, category, domain_count, enabled, etag, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			format = excluded.format,
			category = excluded.category,
			domain_count = excluded.domain_count,
			enabled = excluded.enabled,
			etag = excluded.etag,
			last_updated = excluded.last_updated`,
		src.Name, src.URL, string(src.Format), src.Category, src.DomainCount, src.Enabled, src.ETag, lastUpdated)
	if err != nil {
		return fmt.Errorf("upsert guardian_blocklists: %w", err)
	}

	if src.ID == 0 {
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			src.ID = id
		} else {
			return db.conn.QueryRow(`SELECT id FROM guardian_blocklists WHERE name = ?`, src.Name).Scan(&src.ID)
		}
	}
	return nil
}

// RecordBlocklistSync updates a source's last-sync metadata after
// SyncSource runs, matching the in-memory Store update.
func (db *DB) RecordBlocklistSync(id int64, domainCount int, etag string, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`
		UPDATE guardian_blocklists SET domain_count = ?, etag = ?, last_updated = ? WHERE id = ?`,
		domainCount, etag, now, id)
	return err
}
