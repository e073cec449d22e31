package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Load reads Guardian's configuration from the environment, applying
// defaults and validation. path, if non-empty, names an optional YAML
// file read before env overrides are applied; most deployments are
// env-var-only and pass "".
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		DatabaseURL: v.GetString("database_url"),
		DNS: DNSConfig{
			Host:             v.GetString("dns.host"),
			Port:             v.GetInt("dns.port"),
			UpstreamDoH:      v.GetString("dns.upstream_doh"),
			UpstreamFallback: v.GetString("dns.upstream_fallback"),
			CacheSize:        v.GetInt("dns.cache_size"),
			CacheTTLSeconds:  v.GetInt("dns.cache_ttl"),
			SinkholeIP:       v.GetString("dns.sinkhole_ip"),
		},
		Blocklist: BlocklistConfig{
			UpdateIntervalHours: v.GetInt("blocklist.update_hours"),
		},
		Threat: ThreatConfig{
			HMACKey:             v.GetString("threat.hmac_key"),
			ExpiryDays:          v.GetInt("threat.expiry_days"),
			OTXAPIKey:           v.GetString("threat.otx_api_key"),
			AbuseIPDBKey:        v.GetString("threat.abuseipdb_api_key"),
			AbuseIPDBDailyLimit: v.GetInt("threat.abuseipdb_daily_limit"),
		},
		Alerts: AlertsConfig{
			WebhookURL: v.GetString("alerts.webhook_url"),
		},
		Logging: LoggingConfig{
			Level:            strings.ToUpper(v.GetString("logging.level")),
			Structured:       v.GetBool("logging.structured"),
			StructuredFormat: v.GetString("logging.structured_format"),
			IncludePID:       v.GetBool("logging.include_pid"),
			ExtraFields:      v.GetStringMapString("logging.extra_fields"),
		},
		API: APIConfig{
			Host:     v.GetString("api.host"),
			Port:     v.GetInt("api.port"),
			APIKey:   v.GetString("api.api_key"),
			WebUIDir: v.GetString("api.webui_dir"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "guardian.db")

	v.SetDefault("dns.host", "0.0.0.0")
	v.SetDefault("dns.port", 53)
	v.SetDefault("dns.upstream_doh", "https://cloudflare-dns.com/dns-query")
	v.SetDefault("dns.upstream_fallback", "1.1.1.1:53")
	v.SetDefault("dns.cache_size", 10000)
	v.SetDefault("dns.cache_ttl", 300)
	v.SetDefault("dns.sinkhole_ip", "0.0.0.0")

	v.SetDefault("blocklist.update_hours", 24)

	v.SetDefault("threat.expiry_days", 90)
	v.SetDefault("threat.abuseipdb_daily_limit", 1000)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.api_key", "")
	v.SetDefault("api.webui_dir", "")
}

// bindEnvVars binds each setting to its environment variable. The
// variables are unprefixed or prefixed per subsystem (GUARDIAN_,
// THREAT_, OTX_, ABUSEIPDB_, ALERT_), so each key is bound
// individually rather than via a single AutomaticEnv() replacer.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("dns.host", "GUARDIAN_DNS_HOST")
	_ = v.BindEnv("dns.port", "GUARDIAN_DNS_PORT")
	_ = v.BindEnv("dns.upstream_doh", "GUARDIAN_UPSTREAM_DOH")
	_ = v.BindEnv("dns.upstream_fallback", "GUARDIAN_UPSTREAM_FALLBACK")
	_ = v.BindEnv("dns.cache_size", "GUARDIAN_CACHE_SIZE")
	_ = v.BindEnv("dns.cache_ttl", "GUARDIAN_CACHE_TTL")
	_ = v.BindEnv("dns.sinkhole_ip", "GUARDIAN_SINKHOLE_IP")
	_ = v.BindEnv("blocklist.update_hours", "GUARDIAN_BLOCKLIST_UPDATE_HOURS")
	_ = v.BindEnv("threat.hmac_key", "THREAT_HMAC_KEY")
	_ = v.BindEnv("threat.expiry_days", "THREAT_EXPIRY_DAYS")
	_ = v.BindEnv("threat.otx_api_key", "OTX_API_KEY")
	_ = v.BindEnv("threat.abuseipdb_api_key", "ABUSEIPDB_API_KEY")
	_ = v.BindEnv("threat.abuseipdb_daily_limit", "ABUSEIPDB_DAILY_LIMIT")
	_ = v.BindEnv("alerts.webhook_url", "ALERT_WEBHOOK_URL")
	_ = v.BindEnv("api.host", "GUARDIAN_API_HOST")
	_ = v.BindEnv("api.port", "GUARDIAN_API_PORT")
	_ = v.BindEnv("api.api_key", "GUARDIAN_API_KEY")
	_ = v.BindEnv("api.webui_dir", "GUARDIAN_WEBUI_DIR")
}

func validate(cfg *Config) error {
	if cfg.DNS.Port <= 0 || cfg.DNS.Port > 65535 {
		return errors.New("dns.port must be 1..65535")
	}
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return errors.New("api.port must be 1..65535")
	}
	if cfg.Threat.ExpiryDays <= 0 {
		cfg.Threat.ExpiryDays = 90
	}
	if cfg.Blocklist.UpdateIntervalHours <= 0 {
		cfg.Blocklist.UpdateIntervalHours = 24
	}
	return nil
}
