// Package config loads Guardian's configuration using Viper. The
// settings don't share a single env-var prefix: DNS settings are
// GUARDIAN_-prefixed while the threat and alerting subsystems keep
// their historical THREAT_/OTX_/ABUSEIPDB_/ALERT_ names.
package config

// DNSConfig controls the DNS listener and upstream resolution.
type DNSConfig struct {
	Host            string
	Port            int
	UpstreamDoH     string
	UpstreamFallback string
	CacheSize       int
	CacheTTLSeconds int
	SinkholeIP      string
}

// BlocklistConfig controls scheduled blocklist sync.
type BlocklistConfig struct {
	UpdateIntervalHours int
}

// ThreatConfig controls threat-intelligence ingestion and retention.
type ThreatConfig struct {
	HMACKey       string
	ExpiryDays    int
	OTXAPIKey     string
	AbuseIPDBKey  string
	AbuseIPDBDailyLimit int
}

// AlertsConfig controls the alert dispatch pipeline.
type AlertsConfig struct {
	WebhookURL string
}

// LoggingConfig matches the shape internal/logging.Configure
// consumes.
type LoggingConfig struct {
	Level            string
	Structured       bool
	StructuredFormat string
	IncludePID       bool
	ExtraFields      map[string]string
}

// APIConfig controls the management HTTP API.
type APIConfig struct {
	Host     string
	Port     int
	APIKey   string
	WebUIDir string
}

// Config is Guardian's root configuration.
type Config struct {
	DatabaseURL string
	DNS         DNSConfig
	Blocklist   BlocklistConfig
	Threat      ThreatConfig
	Alerts      AlertsConfig
	Logging     LoggingConfig
	API         APIConfig
}
