package models

import "time"

// ThreatFeedResponse is one registered threat-intel feed.
type ThreatFeedResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	FeedType     string    `json:"feed_type"`
	Enabled      bool      `json:"enabled"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	EntriesCount int       `json:"entries_count"`
}

// ThreatFeedsResponse lists registered feeds.
type ThreatFeedsResponse struct {
	Feeds []ThreatFeedResponse `json:"feeds"`
	Count int                  `json:"count"`
}

// ThreatStatsResponse aggregates total/enabled feeds, indicator
// count, average score, and a coarse score-bucket distribution.
type ThreatStatsResponse struct {
	TotalIndicators    int            `json:"total_indicators"`
	TotalFeeds         int            `json:"total_feeds"`
	EnabledFeeds       int            `json:"enabled_feeds"`
	AverageThreatScore float64        `json:"average_threat_score"`
	ScoreDistribution  map[string]int `json:"score_distribution"`
}

// ThreatLookupResponse is the result of GET /api/threat/lookup/{ip}.
type ThreatLookupResponse struct {
	IP             string    `json:"ip"`
	Found          bool      `json:"found"`
	ThreatScore    float64   `json:"threat_score,omitempty"`
	SourceFeeds    []string  `json:"source_feeds,omitempty"`
	IndicatorTypes []string  `json:"indicator_types,omitempty"`
	ReportCount    int       `json:"report_count,omitempty"`
	LastSeen       time.Time `json:"last_seen,omitempty"`
}

// ThreatSyncResponse reports a feed-sync pass's outcome, mirroring
// sync_all_feeds/sync_feed's return dict.
type ThreatSyncResponse struct {
	FeedsSynced     int      `json:"feeds_synced"`
	TotalIndicators int      `json:"total_indicators"`
	Errors          []string `json:"errors,omitempty"`
	ExpiredCleaned  int      `json:"expired_cleaned"`
}
