package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/bigr-systems/guardian/internal/api/models"
	"github.com/bigr-systems/guardian/internal/database"
	"github.com/bigr-systems/guardian/internal/firewall"
	"github.com/bigr-systems/guardian/internal/threat"
)

// FirewallStatus godoc
// @Summary Firewall status
// @Tags firewall
// @Produce json
// @Success 200 {object} models.FirewallStatusResponse
// @Security ApiKeyAuth
// @Router /firewall/status [get]
func (h *Handler) FirewallStatus(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}
	st := svc.Status()
	c.JSON(http.StatusOK, models.FirewallStatusResponse{
		Enabled: st.Enabled, Platform: st.Platform, Engine: st.Engine,
		TotalRules: st.TotalRules, ActiveRules: st.ActiveRules,
		ProtectionLevel: st.ProtectionLevel, AdapterInstalled: st.AdapterInstalled,
	})
}

// ListFirewallRules godoc
// @Summary List firewall rules
// @Tags firewall
// @Produce json
// @Param type query string false "filter by rule type"
// @Param active_only query bool false "only active rules"
// @Success 200 {object} models.FirewallRulesResponse
// @Security ApiKeyAuth
// @Router /firewall/rules [get]
func (h *Handler) ListFirewallRules(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusOK, models.FirewallRulesResponse{})
		return
	}

	activeOnly, _ := strconv.ParseBool(c.Query("active_only"))
	rules := svc.Rules(firewall.RuleType(c.Query("type")), activeOnly)
	out := make([]models.FirewallRuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, firewallRuleResponse(r))
	}
	c.JSON(http.StatusOK, models.FirewallRulesResponse{Rules: out, Count: len(out)})
}

// CreateFirewallRule godoc
// @Summary Create a firewall rule
// @Tags firewall
// @Accept json
// @Produce json
// @Param rule body models.CreateFirewallRuleRequest true "rule"
// @Success 201 {object} models.FirewallRuleResponse
// @Security ApiKeyAuth
// @Router /firewall/rules [post]
func (h *Handler) CreateFirewallRule(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}

	var req models.CreateFirewallRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	direction := firewall.Direction(req.Direction)
	if direction == "" {
		direction = firewall.DirectionBoth
	}
	protocol := firewall.Protocol(req.Protocol)
	if protocol == "" {
		protocol = firewall.ProtocolAny
	}

	created, err := svc.AddRule(firewall.Rule{
		Type: firewall.RuleType(req.Type), Target: req.Target,
		Direction: direction, Protocol: protocol, Reason: req.Reason,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if db := h.getDatabase(); db != nil {
		if err := db.InsertFirewallRule(created); err != nil {
			h.logger.Error("persist firewall rule failed", "error", err, "target", created.Target)
		}
	}
	c.JSON(http.StatusCreated, firewallRuleResponse(created))
}

// DeleteFirewallRule godoc
// @Summary Remove a firewall rule
// @Tags firewall
// @Produce json
// @Param id path string true "rule ID"
// @Success 200 {object} models.StatusResponse
// @Security ApiKeyAuth
// @Router /firewall/rules/{id} [delete]
func (h *Handler) DeleteFirewallRule(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}
	id := c.Param("id")
	if err := svc.RemoveRule(id); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	if db := h.getDatabase(); db != nil {
		if err := db.SetFirewallRuleActive(id, false); err != nil {
			h.logger.Error("persist firewall rule removal failed", "error", err, "id", id)
		}
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// ToggleFirewallRule godoc
// @Summary Flip a firewall rule's active flag
// @Tags firewall
// @Produce json
// @Param id path string true "rule ID"
// @Success 200 {object} models.FirewallRuleResponse
// @Security ApiKeyAuth
// @Router /firewall/rules/{id}/toggle [put]
func (h *Handler) ToggleFirewallRule(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}
	r, err := svc.ToggleRule(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	if db := h.getDatabase(); db != nil {
		if err := db.SetFirewallRuleActive(r.ID, r.Active); err != nil {
			h.logger.Error("persist firewall rule toggle failed", "error", err, "id", r.ID)
		}
	}
	c.JSON(http.StatusOK, firewallRuleResponse(r))
}

// SyncFirewallThreatRules godoc
// @Summary Force an immediate threat-intel rule sync
// @Tags firewall
// @Produce json
// @Success 200 {object} models.FirewallSyncResultResponse
// @Security ApiKeyAuth
// @Router /firewall/sync/threats [post]
func (h *Handler) SyncFirewallThreatRules(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}
	store, _ := h.getThreat()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "threat store not configured"})
		return
	}

	bridge := &threat.FirewallBridge{Store: store}
	result, err := svc.SyncThreatRules(bridge)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.FirewallSyncResultResponse{Added: result.Added, Skipped: result.Skipped})
}

// SyncFirewallPortRules godoc
// @Summary Force an immediate high-risk-port rule sync
// @Tags firewall
// @Produce json
// @Success 200 {object} models.FirewallSyncResultResponse
// @Security ApiKeyAuth
// @Router /firewall/sync/ports [post]
func (h *Handler) SyncFirewallPortRules(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}
	result, err := svc.SyncPortRules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.FirewallSyncResultResponse{Added: result.Added, Skipped: result.Skipped})
}

// ReinstallFirewallAdapter godoc
// @Summary Reinstall the platform firewall adapter
// @Tags firewall
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Security ApiKeyAuth
// @Router /firewall/adapter/install [post]
func (h *Handler) ReinstallFirewallAdapter(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil || svc.Adapter == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall adapter not configured"})
		return
	}
	if err := svc.Adapter.Install(); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// FirewallEvents godoc
// @Summary Recent firewall log events
// @Tags firewall
// @Produce json
// @Param limit query int false "max events (default 100)"
// @Param action query string false "filter by action (blocked/allowed)"
// @Success 200 {object} models.FirewallEventsResponse
// @Security ApiKeyAuth
// @Router /firewall/events [get]
func (h *Handler) FirewallEvents(c *gin.Context) {
	db := h.getDatabase()
	if db == nil {
		c.JSON(http.StatusOK, models.FirewallEventsResponse{})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := db.RecentFirewallEvents(limit, c.Query("action"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]models.FirewallEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, models.FirewallEventResponse{
			Timestamp: e.Timestamp, Action: e.Action, RuleID: e.RuleID,
			SourceIP: e.SourceIP, DestIP: e.DestIP, DestPort: e.DestPort,
			Protocol: string(e.Protocol), ProcessName: e.ProcessName, Direction: string(e.Direction),
		})
	}
	c.JSON(http.StatusOK, models.FirewallEventsResponse{Events: out, Count: len(out)})
}

// FirewallDailyStats godoc
// @Summary Per-day block/allow counts over a trailing window
// @Tags firewall
// @Produce json
// @Param days query int false "trailing window size (default 7)"
// @Success 200 {object} models.FirewallDailyStatsResponse
// @Security ApiKeyAuth
// @Router /firewall/stats/daily [get]
func (h *Handler) FirewallDailyStats(c *gin.Context) {
	db := h.getDatabase()
	if db == nil {
		c.JSON(http.StatusOK, models.FirewallDailyStatsResponse{})
		return
	}

	days := 7
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}

	stats, err := db.FirewallDailyStats(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]models.FirewallDailyStatRow, 0, len(stats))
	for _, s := range stats {
		out = append(out, models.FirewallDailyStatRow{Date: s.Date, Blocked: s.Blocked, Allowed: s.Allowed})
	}
	c.JSON(http.StatusOK, models.FirewallDailyStatsResponse{Days: out})
}

// GetFirewallConfig godoc
// @Summary Current firewall auto-sync configuration
// @Tags firewall
// @Produce json
// @Success 200 {object} models.FirewallConfigResponse
// @Security ApiKeyAuth
// @Router /firewall/config [get]
func (h *Handler) GetFirewallConfig(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}
	c.JSON(http.StatusOK, models.FirewallConfigResponse{ThreatScoreThreshold: svc.ThreatScoreThreshold})
}

// UpdateFirewallConfig godoc
// @Summary Update the firewall auto-sync configuration
// @Tags firewall
// @Accept json
// @Produce json
// @Param config body models.UpdateFirewallConfigRequest true "config"
// @Success 200 {object} models.FirewallConfigResponse
// @Security ApiKeyAuth
// @Router /firewall/config [put]
func (h *Handler) UpdateFirewallConfig(c *gin.Context) {
	svc := h.getFirewall()
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "firewall service not configured"})
		return
	}

	var req models.UpdateFirewallConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if req.ThreatScoreThreshold != nil {
		svc.ThreatScoreThreshold = *req.ThreatScoreThreshold
		if db := h.getDatabase(); db != nil {
			value := strconv.FormatFloat(*req.ThreatScoreThreshold, 'f', -1, 64)
			if err := db.SetConfig(database.ConfigKeyFirewallThreatScoreThreshold, value); err != nil {
				h.logger.Warn("persist firewall config failed", "error", err)
			}
		}
	}
	c.JSON(http.StatusOK, models.FirewallConfigResponse{ThreatScoreThreshold: svc.ThreatScoreThreshold})
}

// firewallRuleResponse converts a firewall.Rule to its wire shape.
func firewallRuleResponse(r firewall.Rule) models.FirewallRuleResponse {
	resp := models.FirewallRuleResponse{
		ID: r.ID, Type: string(r.Type), Target: r.Target,
		Direction: string(r.Direction), Protocol: string(r.Protocol),
		Source: string(r.Source), Reason: r.Reason, Active: r.Active,
		CreatedAt: r.CreatedAt, HitCount: r.HitCount,
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		resp.ExpiresAt = &t
	}
	return resp
}
