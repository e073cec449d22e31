package database

import (
	"fmt"

	"github.com/bigr-systems/guardian/internal/rules"
)

// LoadCustomRules returns every custom rule, active and inactive, for
// seeding rules.Store.Load at startup.
func (db *DB) LoadCustomRules() ([]*rules.Rule, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, action, domain, category, reason, hit_count, active, created_at
		FROM guardian_custom_rules`)
	if err != nil {
		return nil, fmt.Errorf("query guardian_custom_rules: %w", err)
	}
	defer rows.Close()

	var out []*rules.Rule
	for rows.Next() {
		r := &rules.Rule{}
		var action string
		var hitCount int64
		if err := rows.Scan(&r.ID, &action, &r.Domain, &r.Category, &r.Reason, &hitCount, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan guardian_custom_rules row: %w", err)
		}
		r.Action = rules.Action(action)
		r.HitCount.Store(hitCount)
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertCustomRule persists a newly created rule and fills in its
// database-assigned ID.
func (db *DB) InsertCustomRule(r *rules.Rule) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`
		INSERT INTO guardian_custom_rules (action, domain, category, reason, hit_count, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(r.Action), r.Domain, r.Category, r.Reason, r.HitCount.Load(), r.Active, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert guardian_custom_rules: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get inserted rule id: %w", err)
	}
	r.ID = id
	return nil
}

// DeactivateCustomRule marks a rule inactive, mirroring Store.Remove's
// soft delete.
func (db *DB) DeactivateCustomRule(id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`UPDATE guardian_custom_rules SET active = 0 WHERE id = ?`, id)
	return err
}

// IncrementCustomRuleHit persists a hit-count bump. Best-effort: the
// caller has already updated the in-memory counter, so a failure here
// only risks losing the count across a restart, not correctness.
func (db *DB) IncrementCustomRuleHit(id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`UPDATE guardian_custom_rules SET hit_count = hit_count + 1 WHERE id = ?`, id)
	return err
}
