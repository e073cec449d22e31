package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/bigr-systems/guardian/internal/api/models"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Health godoc
// @Summary Health check
// @Description Returns server health status
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Server statistics
// @Description Returns runtime statistics including system CPU usage, memory usage, and DNS query metrics
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	uptime := time.Since(h.startTime)

	memStats := models.MemoryStats{}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		memStats.TotalMB = float64(vmStat.Total) / 1024 / 1024
		memStats.FreeMB = float64(vmStat.Available) / 1024 / 1024
		memStats.UsedMB = float64(vmStat.Used) / 1024 / 1024
		memStats.UsedPercent = vmStat.UsedPercent
	}

	cpuStats := models.CPUStats{NumCPU: runtime.NumCPU()}
	if cpuPercent, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuStats.UsedPercent = cpuPercent[0]
		cpuStats.IdlePercent = 100.0 - cpuPercent[0]
	}

	c.JSON(http.StatusOK, models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		CPU:           cpuStats,
		Memory:        memStats,
		DNS:           h.dnsStatsResponse(),
	})
}

func (h *Handler) dnsStatsResponse() models.DNSStatsResponse {
	tracker := h.getStats()
	if tracker == nil {
		return models.DNSStatsResponse{}
	}
	s := tracker.Summary()

	top := make([]models.DomainCountResponse, 0, len(s.TopBlocked))
	for _, dc := range s.TopBlocked {
		top = append(top, models.DomainCountResponse{Domain: dc.Domain, Count: dc.Count})
	}

	return models.DNSStatsResponse{
		PeriodTotal:     s.Period.Total,
		PeriodAllowed:   s.Period.Allowed,
		PeriodBlocked:   s.Period.Blocked,
		PeriodErrored:   s.Period.Errored,
		PeriodCacheHits: s.Period.CacheHits,
		LifetimeTotal:   s.Lifetime.Total,
		LifetimeAllowed: s.Lifetime.Allowed,
		LifetimeBlocked: s.Lifetime.Blocked,
		TopBlocked:      top,
		WindowStart:     s.WindowStart,
	}
}
