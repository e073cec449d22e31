package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bigr-systems/guardian/internal/alerts"
	"github.com/bigr-systems/guardian/internal/api"
	"github.com/bigr-systems/guardian/internal/blocklist"
	"github.com/bigr-systems/guardian/internal/config"
	"github.com/bigr-systems/guardian/internal/database"
	"github.com/bigr-systems/guardian/internal/dnscache"
	"github.com/bigr-systems/guardian/internal/dnsstats"
	"github.com/bigr-systems/guardian/internal/firewall"
	"github.com/bigr-systems/guardian/internal/firewall/adapters"
	"github.com/bigr-systems/guardian/internal/guardian"
	"github.com/bigr-systems/guardian/internal/logging"
	"github.com/bigr-systems/guardian/internal/resolve"
	"github.com/bigr-systems/guardian/internal/rules"
	"github.com/bigr-systems/guardian/internal/threat"
	"github.com/bigr-systems/guardian/internal/threat/feeds"
)

// DefaultPIDPath is where AcquirePIDFile looks absent an override.
const DefaultPIDPath = "guardian.pid"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	pidPath    string
	platform   string
	noTCP      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "optional YAML config file read before env overrides")
	flag.StringVar(&f.pidPath, "pid-file", DefaultPIDPath, "path to the PID file")
	flag.StringVar(&f.platform, "platform", "", "override firewall adapter platform (linux, macos, windows)")
	flag.BoolVar(&f.noTCP, "no-tcp", false, "disable the TCP DNS listener")
	flag.Parse()
	return f
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	logger.Info("guardian starting",
		"database", cfg.DatabaseURL,
		"dns_host", cfg.DNS.Host,
		"dns_port", cfg.DNS.Port,
		"api_port", cfg.API.Port,
	)

	release, err := guardian.AcquirePIDFile(flags.pidPath)
	if err != nil {
		return fmt.Errorf("acquire pid file: %w", err)
	}
	defer release()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cache := dnscache.New(dnscache.Config{
		MaxEntries: cfg.DNS.CacheSize,
		MaxTTL:     time.Duration(cfg.DNS.CacheTTLSeconds) * time.Second,
	})
	resolver := resolve.New(resolve.Config{
		DoHURL:       cfg.DNS.UpstreamDoH,
		FallbackAddr: cfg.DNS.UpstreamFallback,
	})

	rulesStore, err := loadRulesStore(db)
	if err != nil {
		return err
	}
	blocklistStore, err := loadBlocklistStore(db)
	if err != nil {
		return err
	}

	stats := dnsstats.New(dnsstats.Config{
		Flush: func(fctx context.Context, s dnsstats.Summary) {
			if flushErr := db.FlushQueryStats(fctx, s); flushErr != nil {
				logger.ErrorContext(fctx, "flush query stats failed", "error", flushErr)
			}
		},
	})

	threatStore, threatIngestor, err := loadThreat(db, cfg)
	if err != nil {
		return err
	}

	firewallSvc, err := loadFirewall(db, flags.platform)
	if err != nil {
		return err
	}

	alertsPipeline, err := loadAlerts(db, cfg)
	if err != nil {
		return err
	}

	healthChecker := &guardian.HealthChecker{
		Resolver:          resolver,
		Blocklist:         blocklistStore,
		UpstreamProbeAddr: cfg.DNS.UpstreamFallback,
	}

	apiSrv := api.New(cfg, logger)
	h := apiSrv.Handler()
	h.SetRules(rulesStore)
	h.SetBlocklist(blocklistStore)
	h.SetStats(stats)
	h.SetCache(cache)
	h.SetThreat(threatStore, threatIngestor)
	h.SetFirewall(firewallSvc)
	h.SetAlerts(alertsPipeline)
	h.SetHealthChecker(healthChecker)
	h.SetDatabase(db)

	logger.Info("management API starting", "addr", apiSrv.Addr())
	go func() {
		if serveErr := apiSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("API server error", "error", serveErr)
			cancel()
		}
	}()

	daemon := guardian.New(guardian.Components{
		Logger:             logger,
		Cache:              cache,
		Resolver:           resolver,
		Rules:              rulesStore,
		Blocklist:          blocklistStore,
		Stats:              stats,
		Threat:             threatIngestor,
		Firewall:           firewallSvc,
		FirewallRuleSource: &threat.FirewallBridge{Store: threatStore},
		DNSHost:            cfg.DNS.Host,
		DNSPort:            cfg.DNS.Port,
		SinkholeIP:         cfg.DNS.SinkholeIP,
		EnableTCP:          !flags.noTCP,
	})

	runErr := daemon.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = apiSrv.Shutdown(shutdownCtx)
	shutdownCancel()
	logger.Info("guardian stopped")

	if runErr != nil {
		return fmt.Errorf("daemon exited with error: %w", runErr)
	}
	return nil
}

func loadRulesStore(db *database.DB) (*rules.Store, error) {
	store := rules.New()
	existing, err := db.LoadCustomRules()
	if err != nil {
		return nil, fmt.Errorf("load custom rules: %w", err)
	}
	store.Load(existing)
	return store, nil
}

func loadBlocklistStore(db *database.DB) (*blocklist.Store, error) {
	store := blocklist.New()
	sources, err := db.LoadBlocklistSources()
	if err != nil {
		return nil, fmt.Errorf("load blocklist sources: %w", err)
	}
	for _, src := range sources {
		store.RegisterSource(src)
	}
	return store, nil
}

func loadThreat(db *database.DB, cfg *config.Config) (*threat.Store, *threat.Ingestor, error) {
	store := threat.NewStore()

	feedsLoaded, err := db.LoadThreatFeeds()
	if err != nil {
		return nil, nil, fmt.Errorf("load threat feeds: %w", err)
	}
	store.LoadFeeds(feedsLoaded)

	indicators, err := db.LoadThreatIndicators(time.Now())
	if err != nil {
		return nil, nil, fmt.Errorf("load threat indicators: %w", err)
	}
	store.LoadIndicators(indicators)

	parsers := buildFeedParsers(cfg)
	ingestor := threat.New(store, parsers, cfg.Threat.HMACKey)
	ingestor.ExpiryDays = cfg.Threat.ExpiryDays
	return store, ingestor, nil
}

// buildFeedParsers wires every feed format the feeds package
// supports to a concrete source. A feed whose API key isn't
// configured is simply omitted rather than registered disabled, so an
// unconfigured deployment doesn't spam failed-auth errors on every
// sync.
func buildFeedParsers(cfg *config.Config) []threat.ParserConfig {
	var parsers []threat.ParserConfig

	if cfg.Threat.OTXAPIKey != "" {
		parsers = append(parsers, threat.ParserConfig{
			Parser: &feeds.PulseAPIParser{
				FeedName: "alienvault_otx",
				URL:      "https://otx.alienvault.com/api/v1/pulses/subscribed",
				APIKey:   cfg.Threat.OTXAPIKey,
			},
			FeedURL:  "https://otx.alienvault.com/api/v1/pulses/subscribed",
			FeedType: "pulse_api",
		})
	}
	if cfg.Threat.AbuseIPDBKey != "" {
		parsers = append(parsers, threat.ParserConfig{
			Parser: &feeds.ReputationBlacklistParser{
				FeedName:      "abuseipdb",
				BaseURL:       "https://api.abuseipdb.com/api/v2/blacklist",
				APIKey:        cfg.Threat.AbuseIPDBKey,
				MinConfidence: 75,
			},
			FeedURL:  "https://api.abuseipdb.com/api/v2/blacklist",
			FeedType: "reputation_blacklist",
		})
	}
	parsers = append(parsers,
		threat.ParserConfig{
			Parser:   &feeds.URLJSONParser{FeedName: "urlhaus", URL: "https://urlhaus-api.abuse.ch/v1/urls/recent/"},
			FeedURL:  "https://urlhaus-api.abuse.ch/v1/urls/recent/",
			FeedType: "url_json",
		},
		threat.ParserConfig{
			Parser:   &feeds.IOCJSONParser{FeedName: "threatfox", URL: "https://threatfox-api.abuse.ch/api/v1/", Query: `{"query":"get_iocs","days":1}`},
			FeedURL:  "https://threatfox-api.abuse.ch/api/v1/",
			FeedType: "ioc_json",
		},
		threat.ParserConfig{
			Parser:   &feeds.IPListParser{FeedName: "cins_army", URL: "https://cinsscore.com/list/ci-badguys.txt"},
			FeedURL:  "https://cinsscore.com/list/ci-badguys.txt",
			FeedType: "ip_list",
		},
	)
	return parsers
}

func loadFirewall(db *database.DB, platformOverride string) (*firewall.Service, error) {
	store := firewall.NewStore()
	existing, err := db.LoadFirewallRules()
	if err != nil {
		return nil, fmt.Errorf("load firewall rules: %w", err)
	}
	store.Load(existing)

	adapter, err := adapters.New(platformOverride)
	if err != nil {
		return nil, fmt.Errorf("build firewall adapter: %w", err)
	}

	svc, err := firewall.NewService(store, adapter)
	if err != nil {
		return nil, fmt.Errorf("start firewall service: %w", err)
	}

	// Apply any threshold the control plane persisted on a previous
	// run; absent or unparseable rows keep the built-in default.
	if threshold, ok, err := db.GetConfigFloat(database.ConfigKeyFirewallThreatScoreThreshold); err != nil {
		return nil, fmt.Errorf("load firewall config: %w", err)
	} else if ok {
		svc.ThreatScoreThreshold = threshold
	}
	return svc, nil
}

func loadAlerts(db *database.DB, cfg *config.Config) (*alerts.Pipeline, error) {
	var channels []alerts.ChannelConfig
	channels = append(channels, alerts.ChannelConfig{
		Channel:     &alerts.LogChannel{Path: "guardian-alerts.log"},
		MinSeverity: alerts.SeverityInfo,
	})
	if cfg.Alerts.WebhookURL != "" {
		channels = append(channels, alerts.ChannelConfig{
			Channel:     alerts.NewWebhookChannel(cfg.Alerts.WebhookURL),
			MinSeverity: alerts.SeverityWarning,
		})
	}

	pipeline := alerts.NewPipeline(channels)

	rogueRules, err := db.LoadRogueRules()
	if err != nil {
		return nil, fmt.Errorf("load rogue rules: %w", err)
	}
	pipeline.RogueRules = rogueRules
	return pipeline, nil
}
