package database

import (
	"database/sql"
	"fmt"

	"github.com/bigr-systems/guardian/internal/firewall"
)

// LoadFirewallRules returns every persisted firewall rule, active and
// inactive, for seeding firewall.Store.Load at startup.
func (db *DB) LoadFirewallRules() ([]*firewall.Rule, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, rule_type, target, direction, protocol, source, reason, active, created_at, expires_at, hit_count
		FROM guardian_firewall_rules`)
	if err != nil {
		return nil, fmt.Errorf("query guardian_firewall_rules: %w", err)
	}
	defer rows.Close()

	var out []*firewall.Rule
	for rows.Next() {
		r := &firewall.Rule{}
		var ruleType, direction, protocol, source string
		var expiresAt sql.NullTime
		if err := rows.Scan(&r.ID, &ruleType, &r.Target, &direction, &protocol, &source, &r.Reason,
			&r.Active, &r.CreatedAt, &expiresAt, &r.HitCount); err != nil {
			return nil, fmt.Errorf("scan guardian_firewall_rules row: %w", err)
		}
		r.Type = firewall.RuleType(ruleType)
		r.Direction = firewall.Direction(direction)
		r.Protocol = firewall.Protocol(protocol)
		r.Source = firewall.Source(source)
		if expiresAt.Valid {
			t := expiresAt.Time
			r.ExpiresAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertFirewallRule persists a newly added rule.
func (db *DB) InsertFirewallRule(r firewall.Rule) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var expiresAt any
	if r.ExpiresAt != nil {
		expiresAt = *r.ExpiresAt
	}

	_, err := db.conn.Exec(`
		INSERT INTO guardian_firewall_rules (id, rule_type, target, direction, protocol, source, reason, active, created_at, expires_at, hit_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Type), r.Target, string(r.Direction), string(r.Protocol), string(r.Source),
		r.Reason, r.Active, r.CreatedAt, expiresAt, r.HitCount)
	if err != nil {
		return fmt.Errorf("insert guardian_firewall_rules: %w", err)
	}
	return nil
}

// SetFirewallRuleActive persists Store.Remove/Toggle's active flag
// change.
func (db *DB) SetFirewallRuleActive(id string, active bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`UPDATE guardian_firewall_rules SET active = ? WHERE id = ?`, active, id)
	return err
}

// InsertFirewallEvent appends a row to the firewall event log.
func (db *DB) InsertFirewallEvent(e firewall.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`
		INSERT INTO guardian_firewall_events (timestamp, action, rule_id, source_ip, dest_ip, dest_port, protocol, process_name, direction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.Action, e.RuleID, e.SourceIP, e.DestIP, e.DestPort, e.Protocol, e.ProcessName, e.Direction)
	return err
}

// DailyFirewallStat is one day's block/allow counts, as served by
// the stats/daily endpoint.
type DailyFirewallStat struct {
	Date    string
	Blocked int
	Allowed int
}

// FirewallDailyStats aggregates guardian_firewall_events into
// per-day block/allow counts over the last days days.
func (db *DB) FirewallDailyStats(days int) ([]DailyFirewallStat, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT date(timestamp) AS day,
			SUM(CASE WHEN action = 'blocked' THEN 1 ELSE 0 END),
			SUM(CASE WHEN action = 'allowed' THEN 1 ELSE 0 END)
		FROM guardian_firewall_events
		WHERE timestamp >= datetime('now', printf('-%d days', ?))
		GROUP BY day
		ORDER BY day DESC`, days)
	if err != nil {
		return nil, fmt.Errorf("query firewall daily stats: %w", err)
	}
	defer rows.Close()

	var out []DailyFirewallStat
	for rows.Next() {
		var s DailyFirewallStat
		if err := rows.Scan(&s.Date, &s.Blocked, &s.Allowed); err != nil {
			return nil, fmt.Errorf("scan firewall daily stats row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecentFirewallEvents returns up to limit most-recent events,
// optionally filtered by action, newest first.
func (db *DB) RecentFirewallEvents(limit int, action string) ([]firewall.Event, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := `SELECT timestamp, action, rule_id, source_ip, dest_ip, dest_port, protocol, process_name, direction
		FROM guardian_firewall_events`
	args := []any{}
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query guardian_firewall_events: %w", err)
	}
	defer rows.Close()

	var out []firewall.Event
	for rows.Next() {
		var e firewall.Event
		if err := rows.Scan(&e.Timestamp, &e.Action, &e.RuleID, &e.SourceIP, &e.DestIP,
			&e.DestPort, &e.Protocol, &e.ProcessName, &e.Direction); err != nil {
			return nil, fmt.Errorf("scan guardian_firewall_events row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
