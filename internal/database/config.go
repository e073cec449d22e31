package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Keys of the runtime-writable settings stored in guardian_config.
// Values written here survive restarts and override the env-var
// defaults at startup.
const (
	ConfigKeyFirewallThreatScoreThreshold = "firewall.threat_score_threshold"
)

// SetConfig upserts a runtime configuration value.
func (db *DB) SetConfig(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO guardian_config (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("database: set config %s: %w", key, err)
	}
	return nil
}

// GetConfig retrieves a runtime configuration value. A missing key
// returns ("", false) rather than an error, so callers can fall back
// to their env-var default.
func (db *DB) GetConfig(key string) (string, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var value string
	err := db.conn.QueryRow(`SELECT value FROM guardian_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("database: get config %s: %w", key, err)
	}
	return value, true, nil
}

// GetConfigFloat reads key as a float64, returning ok=false when the
// key is absent or unparseable.
func (db *DB) GetConfigFloat(key string) (float64, bool, error) {
	raw, ok, err := db.GetConfig(key)
	if err != nil || !ok {
		return 0, false, err
	}
	f, parseErr := strconv.ParseFloat(raw, 64)
	if parseErr != nil {
		return 0, false, nil
	}
	return f, true, nil
}
