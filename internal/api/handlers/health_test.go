package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigr-systems/guardian/internal/api/handlers"
	"github.com/bigr-systems/guardian/internal/api/models"
	"github.com/bigr-systems/guardian/internal/config"
)

func setupTestRouter(h *handlers.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/health", h.Health)
	r.GET("/api/stats", h.Stats)
	return r
}

func TestHealth(t *testing.T) {
	cfg := &config.Config{}
	h := handlers.New(cfg, nil)
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.StatusResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestStats(t *testing.T) {
	cfg := &config.Config{}
	h := handlers.New(cfg, nil)
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ServerStatsResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Uptime)
	assert.GreaterOrEqual(t, resp.CPU.NumCPU, 1)
}
