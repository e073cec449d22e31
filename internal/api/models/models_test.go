// Package models_test provides behavior tests for the API models package.
package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bigr-systems/guardian/internal/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse_JSON(t *testing.T) {
	resp := models.ErrorResponse{Error: "something went wrong"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.ErrorResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "something went wrong", decoded.Error)
}

func TestStatusResponse_JSON(t *testing.T) {
	resp := models.StatusResponse{Status: "ok"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.StatusResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestServerStatsResponse_JSON(t *testing.T) {
	startTime := time.Now()
	resp := models.ServerStatsResponse{
		Uptime:        "1h30m",
		UptimeSeconds: 5400,
		StartTime:     startTime,
		CPU:           models.CPUStats{NumCPU: 8, UsedPercent: 25.5, IdlePercent: 74.5},
		Memory:        models.MemoryStats{TotalMB: 16384.0, FreeMB: 8192.0, UsedMB: 8192.0, UsedPercent: 50.0},
		DNS: models.DNSStatsResponse{
			PeriodTotal:   1000,
			PeriodBlocked: 100,
		},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.ServerStatsResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "1h30m", decoded.Uptime)
	assert.Equal(t, int64(5400), decoded.UptimeSeconds)
	assert.Equal(t, 8, decoded.CPU.NumCPU)
	assert.InDelta(t, 25.5, decoded.CPU.UsedPercent, 0.001)
	assert.Equal(t, int64(1000), decoded.DNS.PeriodTotal)
}

func TestDNSStatsResponse_JSON(t *testing.T) {
	resp := models.DNSStatsResponse{
		PeriodTotal:   10000,
		PeriodBlocked: 2000,
		LifetimeTotal: 50000,
		TopBlocked:    []models.DomainCountResponse{{Domain: "ads.example.com", Count: 42}},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.DNSStatsResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), decoded.PeriodTotal)
	require.Len(t, decoded.TopBlocked, 1)
	assert.Equal(t, "ads.example.com", decoded.TopBlocked[0].Domain)
}

func TestRuleResponse_JSON(t *testing.T) {
	resp := models.RuleResponse{ID: 1, Action: "block", Domain: "ads.example.com", Active: true}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.RuleResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "block", decoded.Action)
	assert.True(t, decoded.Active)
}

func TestThreatLookupResponse_NotFound(t *testing.T) {
	resp := models.ThreatLookupResponse{IP: "1.2.3.4", Found: false}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"found":false`)
}

func TestFirewallRuleResponse_JSON(t *testing.T) {
	resp := models.FirewallRuleResponse{ID: "fw-1", Type: "block_ip", Target: "1.2.3.0/24", Active: true}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded models.FirewallRuleResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "fw-1", decoded.ID)
	assert.Nil(t, decoded.ExpiresAt)
}

func TestScanRequest_JSON(t *testing.T) {
	req := models.ScanRequest{Assets: []models.ScanAsset{{IP: "192.168.1.10", MAC: "aa:bb"}}}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded models.ScanRequest
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	require.Len(t, decoded.Assets, 1)
	assert.Equal(t, "192.168.1.10", decoded.Assets[0].IP)
}
