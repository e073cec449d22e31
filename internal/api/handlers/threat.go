package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/bigr-systems/guardian/internal/api/models"
)

// ListThreatFeeds godoc
// @Summary List registered threat-intel feeds
// @Tags threat
// @Produce json
// @Success 200 {object} models.ThreatFeedsResponse
// @Security ApiKeyAuth
// @Router /threat/feeds [get]
func (h *Handler) ListThreatFeeds(c *gin.Context) {
	store, _ := h.getThreat()
	if store == nil {
		c.JSON(http.StatusOK, models.ThreatFeedsResponse{})
		return
	}
	feeds := store.Feeds()
	out := make([]models.ThreatFeedResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, models.ThreatFeedResponse{
			ID: f.ID, Name: f.Name, URL: f.URL, FeedType: f.FeedType,
			Enabled: f.Enabled, LastSyncedAt: f.LastSyncedAt, EntriesCount: f.EntriesCount,
		})
	}
	c.JSON(http.StatusOK, models.ThreatFeedsResponse{Feeds: out, Count: len(out)})
}

// ThreatStats godoc
// @Summary Threat-intel aggregate statistics
// @Description Total/enabled feed counts, indicator count, average score, and a coarse score-bucket distribution.
// @Tags threat
// @Produce json
// @Success 200 {object} models.ThreatStatsResponse
// @Security ApiKeyAuth
// @Router /threat/stats [get]
func (h *Handler) ThreatStats(c *gin.Context) {
	store, _ := h.getThreat()
	if store == nil {
		c.JSON(http.StatusOK, models.ThreatStatsResponse{ScoreDistribution: map[string]int{}})
		return
	}

	feeds := store.Feeds()
	resp := models.ThreatStatsResponse{
		TotalFeeds:        len(feeds),
		ScoreDistribution: map[string]int{"low": 0, "medium": 0, "high": 0},
	}
	for _, f := range feeds {
		if f.Enabled {
			resp.EnabledFeeds++
		}
	}

	indicators := store.HighScoring(0, time.Now())
	resp.TotalIndicators = len(indicators)
	var total float64
	for _, ind := range indicators {
		total += ind.ThreatScore
		switch {
		case ind.ThreatScore >= 0.7:
			resp.ScoreDistribution["high"]++
		case ind.ThreatScore >= 0.4:
			resp.ScoreDistribution["medium"]++
		default:
			resp.ScoreDistribution["low"]++
		}
	}
	if len(indicators) > 0 {
		resp.AverageThreatScore = total / float64(len(indicators))
	}
	c.JSON(http.StatusOK, resp)
}

// LookupThreat godoc
// @Summary Look up an IP's threat indicator
// @Tags threat
// @Produce json
// @Param ip path string true "IP address"
// @Success 200 {object} models.ThreatLookupResponse
// @Security ApiKeyAuth
// @Router /threat/lookup/{ip} [get]
func (h *Handler) LookupThreat(c *gin.Context) {
	_, ingestor := h.getThreat()
	ip := c.Param("ip")
	if ingestor == nil {
		c.JSON(http.StatusOK, models.ThreatLookupResponse{IP: ip, Found: false})
		return
	}

	ind, ok := ingestor.Lookup(ip)
	if !ok {
		c.JSON(http.StatusOK, models.ThreatLookupResponse{IP: ip, Found: false})
		return
	}
	c.JSON(http.StatusOK, models.ThreatLookupResponse{
		IP: ip, Found: true, ThreatScore: ind.ThreatScore,
		SourceFeeds: ind.SourceFeeds, IndicatorTypes: ind.IndicatorTypes,
		ReportCount: ind.ReportCount, LastSeen: ind.LastSeen,
	})
}

// SyncAllThreatFeeds godoc
// @Summary Force an immediate sync of every enabled threat feed
// @Tags threat
// @Produce json
// @Success 200 {object} models.ThreatSyncResponse
// @Security ApiKeyAuth
// @Router /threat/feeds/sync [post]
func (h *Handler) SyncAllThreatFeeds(c *gin.Context) {
	_, ingestor := h.getThreat()
	if ingestor == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "threat ingestor not configured"})
		return
	}
	summary := ingestor.SyncAll(c.Request.Context())
	c.JSON(http.StatusOK, models.ThreatSyncResponse{
		FeedsSynced: summary.FeedsSynced, TotalIndicators: summary.TotalIndicators,
		Errors: summary.Errors, ExpiredCleaned: summary.ExpiredCleaned,
	})
}

// SyncThreatFeed godoc
// @Summary Force an immediate sync of one named feed
// @Tags threat
// @Produce json
// @Param name path string true "feed name"
// @Success 200 {object} models.ThreatSyncResponse
// @Security ApiKeyAuth
// @Router /threat/feeds/{name}/sync [post]
func (h *Handler) SyncThreatFeed(c *gin.Context) {
	_, ingestor := h.getThreat()
	if ingestor == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "threat ingestor not configured"})
		return
	}
	result := ingestor.SyncFeed(c.Request.Context(), c.Param("name"))
	resp := models.ThreatSyncResponse{TotalIndicators: result.IndicatorsFetched}
	if result.Err != nil {
		resp.Errors = []string{result.Err.Error()}
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.FeedsSynced = 1
	c.JSON(http.StatusOK, resp)
}
