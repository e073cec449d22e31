// Package handlers implements the REST API endpoint handlers for
// Guardian's management API.
//
// @title Guardian Management API
// @version 1.0
// @description REST API for managing the Guardian DNS filtering, threat intelligence, firewall, and alerting subsystems.
//
// @contact.name Guardian
// @contact.url https://github.com/bigr-systems/guardian
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bigr-systems/guardian/internal/alerts"
	"github.com/bigr-systems/guardian/internal/blocklist"
	"github.com/bigr-systems/guardian/internal/config"
	"github.com/bigr-systems/guardian/internal/database"
	"github.com/bigr-systems/guardian/internal/dnscache"
	"github.com/bigr-systems/guardian/internal/dnsstats"
	"github.com/bigr-systems/guardian/internal/firewall"
	"github.com/bigr-systems/guardian/internal/guardian"
	"github.com/bigr-systems/guardian/internal/rules"
	"github.com/bigr-systems/guardian/internal/threat"
)

// Handler contains dependencies for API handlers. The subsystem
// fields below are set once the daemon has finished wiring its
// components — New itself only needs cfg and logger.
type Handler struct {
	cfg       *config.Config
	logger    *slog.Logger
	startTime time.Time

	mu        sync.RWMutex
	rules     *rules.Store
	blocklist *blocklist.Store
	stats     *dnsstats.Tracker
	cache     *dnscache.Cache

	threatStore    *threat.Store
	threatIngestor *threat.Ingestor

	firewallSvc *firewall.Service

	alertsPipeline *alerts.Pipeline
	healthChecker  *guardian.HealthChecker
	db             *database.DB
}

// New creates a new Handler with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
	}
}

// SetRules sets the custom-rules store for runtime access.
func (h *Handler) SetRules(s *rules.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rules = s
}

// SetBlocklist sets the blocklist store for runtime access.
func (h *Handler) SetBlocklist(s *blocklist.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blocklist = s
}

// SetStats sets the DNS query stats tracker for runtime access.
func (h *Handler) SetStats(t *dnsstats.Tracker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = t
}

// SetCache sets the DNS answer cache for runtime access.
func (h *Handler) SetCache(c *dnscache.Cache) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache = c
}

// SetThreat sets the threat store and ingestor for runtime access.
func (h *Handler) SetThreat(store *threat.Store, ingestor *threat.Ingestor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threatStore = store
	h.threatIngestor = ingestor
}

// SetFirewall sets the firewall service for runtime access.
func (h *Handler) SetFirewall(svc *firewall.Service) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.firewallSvc = svc
}

// SetAlerts sets the alert pipeline for runtime access.
func (h *Handler) SetAlerts(p *alerts.Pipeline) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alertsPipeline = p
}

// SetHealthChecker sets the health checker for runtime access.
func (h *Handler) SetHealthChecker(hc *guardian.HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthChecker = hc
}

// SetDatabase sets the persistence layer for endpoints that read
// history directly from storage (firewall events, daily stats)
// instead of an in-memory index.
func (h *Handler) SetDatabase(db *database.DB) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.db = db
}

func (h *Handler) getRules() *rules.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rules
}

func (h *Handler) getBlocklist() *blocklist.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.blocklist
}

func (h *Handler) getStats() *dnsstats.Tracker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

func (h *Handler) getCache() *dnscache.Cache {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cache
}

func (h *Handler) getThreat() (*threat.Store, *threat.Ingestor) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.threatStore, h.threatIngestor
}

func (h *Handler) getFirewall() *firewall.Service {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.firewallSvc
}

func (h *Handler) getAlerts() *alerts.Pipeline {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.alertsPipeline
}

func (h *Handler) getHealthChecker() *guardian.HealthChecker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.healthChecker
}

func (h *Handler) getDatabase() *database.DB {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db
}
