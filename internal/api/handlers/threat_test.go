package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigr-systems/guardian/internal/api/handlers"
	"github.com/bigr-systems/guardian/internal/api/models"
	"github.com/bigr-systems/guardian/internal/config"
	"github.com/bigr-systems/guardian/internal/threat"
)

func threatRouter(h *handlers.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/threat/feeds", h.ListThreatFeeds)
	r.GET("/api/threat/stats", h.ThreatStats)
	r.GET("/api/threat/lookup/:ip", h.LookupThreat)
	return r
}

func TestListThreatFeeds(t *testing.T) {
	store := threat.NewStore()
	store.EnsureFeed("urlhaus", "https://urlhaus-api.abuse.ch/v1/urls/recent/", "url_json")

	h := handlers.New(&config.Config{}, nil)
	h.SetThreat(store, threat.New(store, nil, ""))
	r := threatRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/threat/feeds", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ThreatFeedsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "urlhaus", resp.Feeds[0].Name)
}

func TestThreatStatsAndLookup(t *testing.T) {
	store := threat.NewStore()
	now := time.Now()
	store.Upsert("abcd1234", "1.2.3.0/24", []string{"threatfox"}, []string{"botnet"}, now, now.Add(24*time.Hour),
		func(feeds, types []string) float64 { return 0.9 })

	h := handlers.New(&config.Config{}, nil)
	h.SetThreat(store, threat.New(store, nil, ""))
	r := threatRouter(h)

	statsReq := httptest.NewRequest(http.MethodGet, "/api/threat/stats", nil)
	statsW := httptest.NewRecorder()
	r.ServeHTTP(statsW, statsReq)

	assert.Equal(t, http.StatusOK, statsW.Code)

	var stats models.ThreatStatsResponse
	require.NoError(t, json.Unmarshal(statsW.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalIndicators)
	assert.Equal(t, 1, stats.ScoreDistribution["high"])
}

func TestLookupThreatUnconfigured(t *testing.T) {
	h := handlers.New(&config.Config{}, nil)
	r := threatRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/threat/lookup/8.8.8.8", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ThreatLookupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Found)
	assert.Equal(t, "8.8.8.8", resp.IP)
}
