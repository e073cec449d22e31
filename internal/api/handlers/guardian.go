package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/bigr-systems/guardian/internal/alerts"
	"github.com/bigr-systems/guardian/internal/api/models"
	"github.com/bigr-systems/guardian/internal/rules"
)

// GuardianStatus godoc
// @Summary Appliance status
// @Tags guardian
// @Produce json
// @Success 200 {object} models.GuardianStatusResponse
// @Security ApiKeyAuth
// @Router /guardian/status [get]
func (h *Handler) GuardianStatus(c *gin.Context) {
	uptime := time.Since(h.startTime)

	resp := models.GuardianStatusResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
	}
	if h.cfg != nil {
		resp.DNSHost = h.cfg.DNS.Host
		resp.DNSPort = h.cfg.DNS.Port
		resp.SinkholeIP = h.cfg.DNS.SinkholeIP
	}
	if rs := h.getRules(); rs != nil {
		for _, r := range rs.List() {
			if r.Active {
				resp.RulesActive++
			}
		}
	}
	if bl := h.getBlocklist(); bl != nil {
		resp.BlocklistSources = len(bl.Sources())
		resp.BlocklistDomains = bl.UnionSize()
	}
	c.JSON(http.StatusOK, resp)
}

// GuardianStats godoc
// @Summary DNS query and cache statistics
// @Tags guardian
// @Produce json
// @Success 200 {object} models.GuardianStatsResponse
// @Security ApiKeyAuth
// @Router /guardian/stats [get]
func (h *Handler) GuardianStats(c *gin.Context) {
	resp := models.GuardianStatsResponse{DNS: h.dnsStatsResponse()}
	if cache := h.getCache(); cache != nil {
		s := cache.Stats()
		resp.Cache = models.CacheStatsResponse{
			Hits:      s.Hits,
			Misses:    s.Misses,
			Evictions: s.Evictions,
			Size:      s.Size,
			HitRate:   s.HitRate,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GuardianHealth godoc
// @Summary Aggregated health checks
// @Tags guardian
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Security ApiKeyAuth
// @Router /guardian/health [get]
func (h *Handler) GuardianHealth(c *gin.Context) {
	hc := h.getHealthChecker()
	if hc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "health checker not configured"})
		return
	}

	results := hc.CheckAll(c.Request.Context())
	checks := make([]models.CheckResultResponse, 0, len(results))
	overall := "ok"
	for _, r := range results {
		checks = append(checks, models.CheckResultResponse{
			Name: r.Name, Status: string(r.Status), Message: r.Message,
		})
		if r.Status == "fail" {
			overall = "fail"
		} else if r.Status == "warn" && overall == "ok" {
			overall = "warn"
		}
	}
	c.JSON(http.StatusOK, models.HealthResponse{Status: overall, Checks: checks})
}

// ListRules godoc
// @Summary List custom rules
// @Tags guardian
// @Produce json
// @Success 200 {object} models.RuleListResponse
// @Security ApiKeyAuth
// @Router /guardian/rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	rs := h.getRules()
	if rs == nil {
		c.JSON(http.StatusOK, models.RuleListResponse{})
		return
	}
	list := rs.List()
	out := make([]models.RuleResponse, 0, len(list))
	for _, r := range list {
		out = append(out, ruleResponse(r))
	}
	c.JSON(http.StatusOK, models.RuleListResponse{Rules: out, Count: len(out)})
}

// CreateRule godoc
// @Summary Create a custom allow/block rule
// @Tags guardian
// @Accept json
// @Produce json
// @Param rule body models.CreateRuleRequest true "rule"
// @Success 201 {object} models.RuleResponse
// @Security ApiKeyAuth
// @Router /guardian/rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	rs := h.getRules()
	if rs == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "rules store not configured"})
		return
	}

	var req models.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	r, err := rs.Add(rules.Action(req.Action), req.Domain, req.Category, req.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if db := h.getDatabase(); db != nil {
		if err := db.InsertCustomRule(r); err != nil {
			h.logger.Error("persist custom rule failed", "error", err, "domain", r.Domain)
		}
	}
	c.JSON(http.StatusCreated, ruleResponse(r))
}

// DeleteRule godoc
// @Summary Remove a custom rule
// @Tags guardian
// @Produce json
// @Param id path int true "rule ID"
// @Success 200 {object} models.StatusResponse
// @Security ApiKeyAuth
// @Router /guardian/rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	rs := h.getRules()
	if rs == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "rules store not configured"})
		return
	}

	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	if !rs.Remove(id) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "rule not found"})
		return
	}
	if db := h.getDatabase(); db != nil {
		if err := db.DeactivateCustomRule(id); err != nil {
			h.logger.Error("deactivate persisted custom rule failed", "error", err, "id", id)
		}
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// ListBlocklists godoc
// @Summary List registered blocklist sources
// @Tags guardian
// @Produce json
// @Success 200 {object} models.BlocklistsResponse
// @Security ApiKeyAuth
// @Router /guardian/blocklists [get]
func (h *Handler) ListBlocklists(c *gin.Context) {
	bl := h.getBlocklist()
	if bl == nil {
		c.JSON(http.StatusOK, models.BlocklistsResponse{})
		return
	}
	sources := bl.Sources()
	out := make([]models.BlocklistSourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, models.BlocklistSourceResponse{
			ID: s.ID, Name: s.Name, URL: s.URL, Format: string(s.Format),
			Category: s.Category, DomainCount: s.DomainCount, Enabled: s.Enabled,
			LastUpdated: s.LastUpdated,
		})
	}
	c.JSON(http.StatusOK, models.BlocklistsResponse{Blocklists: out, Count: len(out), UnionSize: bl.UnionSize()})
}

// UpdateBlocklists godoc
// @Summary Trigger an immediate blocklist sync
// @Description Placeholder: the actual fetch/parse/sync pass runs on the daemon's own scheduled loop; this reports current state rather than blocking the request on a network fetch.
// @Tags guardian
// @Produce json
// @Success 200 {object} models.BlocklistUpdateResponse
// @Security ApiKeyAuth
// @Router /guardian/blocklist/update [post]
func (h *Handler) UpdateBlocklists(c *gin.Context) {
	bl := h.getBlocklist()
	if bl == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "blocklist store not configured"})
		return
	}
	c.JSON(http.StatusOK, models.BlocklistUpdateResponse{
		SourcesSynced: len(bl.Sources()),
		UnionSize:     bl.UnionSize(),
	})
}

// SubmitScan godoc
// @Summary Submit a device scan snapshot for diffing
// @Tags guardian
// @Accept json
// @Produce json
// @Param scan body models.ScanRequest true "scan"
// @Success 200 {object} models.ScanResponse
// @Security ApiKeyAuth
// @Router /guardian/scan [post]
func (h *Handler) SubmitScan(c *gin.Context) {
	pipeline := h.getAlerts()
	if pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "alert pipeline not configured"})
		return
	}

	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	current := make([]alerts.Asset, 0, len(req.Assets))
	for _, a := range req.Assets {
		current = append(current, alerts.Asset{
			IP: a.IP, MAC: a.MAC, Category: a.Category, Vendor: a.Vendor,
			Hostname: a.Hostname, OpenPorts: a.OpenPorts, ConfidenceScore: a.ConfidenceScore,
		})
	}

	diff, generated, delivered := pipeline.DiffAndProcess(current)
	if db := h.getDatabase(); db != nil {
		for _, a := range generated {
			if err := db.AppendAlertLog(a); err != nil {
				h.logger.Error("persist alert log failed", "error", err, "alert_id", a.ID)
			}
		}
	}
	c.JSON(http.StatusOK, models.ScanResponse{
		NewAssets:       len(diff.NewAssets),
		RemovedAssets:   len(diff.RemovedAssets),
		ChangedAssets:   len(diff.ChangedAssets),
		UnchangedCount:  diff.UnchangedCount,
		AlertsGenerated: len(generated),
		AlertsDelivered: delivered,
	})
}

// RecentAlerts godoc
// @Summary Recent alerts
// @Tags guardian
// @Produce json
// @Success 200 {object} models.RecentAlertsResponse
// @Security ApiKeyAuth
// @Router /guardian/alerts [get]
func (h *Handler) RecentAlerts(c *gin.Context) {
	pipeline := h.getAlerts()
	if pipeline == nil {
		c.JSON(http.StatusOK, models.RecentAlertsResponse{})
		return
	}
	recent := pipeline.Recent(100)
	out := make([]models.AlertResponse, 0, len(recent))
	for _, a := range recent {
		out = append(out, models.AlertResponse{
			ID: a.ID, Type: string(a.Type), Severity: string(a.Severity),
			IP: a.IP, MAC: a.MAC, Message: a.Message,
		})
	}
	c.JSON(http.StatusOK, models.RecentAlertsResponse{Alerts: out, Count: len(out)})
}

func ruleResponse(r *rules.Rule) models.RuleResponse {
	return models.RuleResponse{
		ID: r.ID, Action: string(r.Action), Domain: r.Domain, Category: r.Category,
		Reason: r.Reason, HitCount: r.HitCount.Load(), Active: r.Active, CreatedAt: r.CreatedAt,
	}
}
