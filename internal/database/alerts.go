package database

import (
	"fmt"

	"github.com/bigr-systems/guardian/internal/alerts"
)

// LoadRogueRules returns every configured rogue-device rule, for
// wiring into alerts.Pipeline.RogueRules at startup.
func (db *DB) LoadRogueRules() ([]alerts.RogueRule, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`SELECT ip_prefix, mac_prefix, severity FROM guardian_rogue_rules`)
	if err != nil {
		return nil, fmt.Errorf("query guardian_rogue_rules: %w", err)
	}
	defer rows.Close()

	var out []alerts.RogueRule
	for rows.Next() {
		var r alerts.RogueRule
		var severity string
		if err := rows.Scan(&r.IPPrefix, &r.MACPrefix, &severity); err != nil {
			return nil, fmt.Errorf("scan guardian_rogue_rules row: %w", err)
		}
		r.Severity = alerts.Severity(severity)
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRogueRule persists a new rogue-device rule.
func (db *DB) InsertRogueRule(r alerts.RogueRule) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`
		INSERT INTO guardian_rogue_rules (ip_prefix, mac_prefix, severity) VALUES (?, ?, ?)`,
		r.IPPrefix, r.MACPrefix, string(r.Severity))
	return err
}

// AppendAlertLog persists one alert row, mirroring Pipeline's bounded
// in-memory ring buffer so the log survives a restart. The table
// itself isn't pruned here; a periodic retention sweep is a deployment
// concern, not something the pipeline needs to enforce twice.
func (db *DB) AppendAlertLog(a alerts.Alert) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`
		INSERT INTO guardian_alert_log (id, type, severity, ip, mac, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), string(a.Severity), a.IP, a.MAC, a.Message, a.Timestamp)
	return err
}

// RecentAlertLog returns up to limit most-recent persisted alerts,
// newest first — used to repopulate Pipeline.Recent across restarts.
func (db *DB) RecentAlertLog(limit int) ([]alerts.Alert, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, type, severity, ip, mac, message, created_at
		FROM guardian_alert_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query guardian_alert_log: %w", err)
	}
	defer rows.Close()

	var out []alerts.Alert
	for rows.Next() {
		var a alerts.Alert
		var alertType, severity string
		if err := rows.Scan(&a.ID, &alertType, &severity, &a.IP, &a.MAC, &a.Message, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan guardian_alert_log row: %w", err)
		}
		a.Type = alerts.Type(alertType)
		a.Severity = alerts.Severity(severity)
		out = append(out, a)
	}
	return out, rows.Err()
}
