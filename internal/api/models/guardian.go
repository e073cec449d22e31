package models

import "time"

// RuleResponse is one custom allow/block rule (internal/rules.Rule).
type RuleResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Domain    string    `json:"domain"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason"`
	HitCount  int64     `json:"hit_count"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleListResponse lists custom rules.
type RuleListResponse struct {
	Rules []RuleResponse `json:"rules"`
	Count int            `json:"count"`
}

// CreateRuleRequest is the body of POST /api/guardian/rules.
type CreateRuleRequest struct {
	Action   string `json:"action" binding:"required,oneof=allow block"`
	Domain   string `json:"domain" binding:"required"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// BlocklistSourceResponse is one registered blocklist feed.
type BlocklistSourceResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Format      string    `json:"format"`
	Category    string    `json:"category"`
	DomainCount int       `json:"domain_count"`
	Enabled     bool      `json:"enabled"`
	LastUpdated time.Time `json:"last_updated"`
}

// BlocklistsResponse lists registered blocklist sources plus the
// union count actually enforced by is_blocked.
type BlocklistsResponse struct {
	Blocklists []BlocklistSourceResponse `json:"blocklists"`
	Count      int                       `json:"count"`
	UnionSize  int                       `json:"union_size"`
}

// BlocklistUpdateResponse reports the outcome of a forced blocklist
// sync.
type BlocklistUpdateResponse struct {
	SourcesSynced int `json:"sources_synced"`
	UnionSize     int `json:"union_size"`
}

// GuardianStatusResponse is the top-level appliance status.
type GuardianStatusResponse struct {
	Uptime           string `json:"uptime"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	DNSHost          string `json:"dns_host"`
	DNSPort          int    `json:"dns_port"`
	SinkholeIP       string `json:"sinkhole_ip"`
	RulesActive      int    `json:"rules_active"`
	BlocklistSources int    `json:"blocklist_sources"`
	BlocklistDomains int    `json:"blocklist_domains"`
}

// CheckResultResponse is one health check's outcome.
type CheckResultResponse struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse aggregates every health check.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks []CheckResultResponse `json:"checks"`
}
