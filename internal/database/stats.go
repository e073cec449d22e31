package database

import (
	"context"
	"fmt"

	"github.com/bigr-systems/guardian/internal/dnsstats"
)

// FlushQueryStats implements dnsstats.FlushFunc: upserts the current
// hour's rollup and replaces that hour's top-blocked-domain rows.
func (db *DB) FlushQueryStats(ctx context.Context, s dnsstats.Summary) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	hourBucket := s.WindowStart.UTC().Truncate(3600 * 1e9).Format("2006-01-02T15:00:00Z")

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flush tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO guardian_query_stats (hour_bucket, queries_total, queries_allowed, queries_blocked, queries_errored, cache_hits)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hour_bucket) DO UPDATE SET
			queries_total = queries_total + excluded.queries_total,
			queries_allowed = queries_allowed + excluded.queries_allowed,
			queries_blocked = queries_blocked + excluded.queries_blocked,
			queries_errored = queries_errored + excluded.queries_errored,
			cache_hits = cache_hits + excluded.cache_hits`,
		hourBucket, s.Period.Total, s.Period.Allowed, s.Period.Blocked, s.Period.Errored, s.Period.CacheHits)
	if err != nil {
		return fmt.Errorf("upsert guardian_query_stats: %w", err)
	}

	for _, dc := range s.TopBlocked {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO guardian_top_blocked_domains (hour_bucket, domain, hit_count)
			VALUES (?, ?, ?)
			ON CONFLICT(hour_bucket, domain) DO UPDATE SET hit_count = excluded.hit_count`,
			hourBucket, dc.Domain, dc.Count)
		if err != nil {
			return fmt.Errorf("upsert guardian_top_blocked_domains: %w", err)
		}
	}

	return tx.Commit()
}
