package models

import "time"

// CPUStats contains system CPU statistics.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats contains system memory statistics.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// ServerStatsResponse contains server runtime and DNS statistics.
type ServerStatsResponse struct {
	Uptime        string           `json:"uptime"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     time.Time        `json:"start_time"`
	CPU           CPUStats         `json:"cpu"`
	Memory        MemoryStats      `json:"memory"`
	DNS           DNSStatsResponse `json:"dns"`
}

// DomainCountResponse is one row of the top-blocked-domains ranking.
type DomainCountResponse struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// DNSStatsResponse mirrors dnsstats.Summary: the current-period and
// lifetime query counters plus the top-blocked-domain ranking.
type DNSStatsResponse struct {
	PeriodTotal      int64                 `json:"period_total"`
	PeriodAllowed    int64                 `json:"period_allowed"`
	PeriodBlocked    int64                 `json:"period_blocked"`
	PeriodErrored    int64                 `json:"period_errored"`
	PeriodCacheHits  int64                 `json:"period_cache_hits"`
	LifetimeTotal    int64                 `json:"lifetime_total"`
	LifetimeAllowed  int64                 `json:"lifetime_allowed"`
	LifetimeBlocked  int64                 `json:"lifetime_blocked"`
	TopBlocked       []DomainCountResponse `json:"top_blocked"`
	WindowStart      time.Time             `json:"window_start"`
}

// CacheStatsResponse is a snapshot of the DNS answer cache's counters.
type CacheStatsResponse struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// GuardianStatsResponse combines the query counters with the answer
// cache's counters for the guardian stats endpoint.
type GuardianStatsResponse struct {
	DNS   DNSStatsResponse   `json:"dns"`
	Cache CacheStatsResponse `json:"cache"`
}
