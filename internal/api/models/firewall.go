package models

import "time"

// FirewallRuleResponse is one firewall rule.
type FirewallRuleResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Target    string     `json:"target"`
	Direction string     `json:"direction"`
	Protocol  string     `json:"protocol"`
	Source    string     `json:"source"`
	Reason    string     `json:"reason"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	HitCount  int64      `json:"hit_count"`
}

// FirewallRulesResponse lists firewall rules.
type FirewallRulesResponse struct {
	Rules []FirewallRuleResponse `json:"rules"`
	Count int                    `json:"count"`
}

// CreateFirewallRuleRequest is the body of POST /api/firewall/rules.
type CreateFirewallRuleRequest struct {
	Type      string `json:"type" binding:"required,oneof=block_ip block_port block_domain allow_ip allow_domain"`
	Target    string `json:"target" binding:"required"`
	Direction string `json:"direction"`
	Protocol  string `json:"protocol"`
	Reason    string `json:"reason"`
}

// FirewallStatusResponse mirrors Service.Status's StatusReport.
type FirewallStatusResponse struct {
	Enabled          bool   `json:"enabled"`
	Platform         string `json:"platform"`
	Engine           string `json:"engine"`
	TotalRules       int    `json:"total_rules"`
	ActiveRules      int    `json:"active_rules"`
	ProtectionLevel  string `json:"protection_level"`
	AdapterInstalled bool   `json:"adapter_installed"`
}

// FirewallEventResponse is one logged block/allow decision.
type FirewallEventResponse struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	RuleID      string    `json:"rule_id,omitempty"`
	SourceIP    string    `json:"source_ip"`
	DestIP      string    `json:"dest_ip"`
	DestPort    int       `json:"dest_port"`
	Protocol    string    `json:"protocol"`
	ProcessName string    `json:"process_name,omitempty"`
	Direction   string    `json:"direction"`
}

// FirewallEventsResponse lists recent firewall events.
type FirewallEventsResponse struct {
	Events []FirewallEventResponse `json:"events"`
	Count  int                     `json:"count"`
}

// FirewallSyncResultResponse reports an auto-sync pass's outcome.
type FirewallSyncResultResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// FirewallDailyStatRow is one day's block/allow counts on the
// stats/daily endpoint.
type FirewallDailyStatRow struct {
	Date    string `json:"date"`
	Blocked int     `json:"blocked"`
	Allowed int     `json:"allowed"`
}

// FirewallDailyStatsResponse lists per-day rollups.
type FirewallDailyStatsResponse struct {
	Days []FirewallDailyStatRow `json:"days"`
}

// FirewallConfigResponse reports the tunable sync threshold.
type FirewallConfigResponse struct {
	ThreatScoreThreshold float64 `json:"threat_score_threshold"`
}

// UpdateFirewallConfigRequest is the body of PUT
// /api/firewall/config.
type UpdateFirewallConfigRequest struct {
	ThreatScoreThreshold *float64 `json:"threat_score_threshold"`
}
