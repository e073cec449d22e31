package api

import (
	"github.com/gin-gonic/gin"
	"github.com/bigr-systems/guardian/internal/api/handlers"
	"github.com/bigr-systems/guardian/internal/api/middleware"
	"github.com/bigr-systems/guardian/internal/config"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bigr-systems/guardian/internal/api/docs" // swagger docs
)

// RegisterRoutes wires every Guardian management endpoint onto r,
// grouped by subsystem.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")

	if cfg != nil && cfg.API.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)

	guardian := api.Group("/guardian")
	guardian.GET("/status", h.GuardianStatus)
	guardian.GET("/stats", h.GuardianStats)
	guardian.GET("/health", h.GuardianHealth)
	guardian.GET("/rules", h.ListRules)
	guardian.POST("/rules", h.CreateRule)
	guardian.DELETE("/rules/:id", h.DeleteRule)
	guardian.GET("/blocklists", h.ListBlocklists)
	guardian.POST("/blocklist/update", h.UpdateBlocklists)
	guardian.POST("/scan", h.SubmitScan)
	guardian.GET("/alerts", h.RecentAlerts)

	threat := api.Group("/threat")
	threat.GET("/feeds", h.ListThreatFeeds)
	threat.GET("/stats", h.ThreatStats)
	threat.GET("/lookup/:ip", h.LookupThreat)
	threat.POST("/feeds/sync", h.SyncAllThreatFeeds)
	threat.POST("/feeds/:name/sync", h.SyncThreatFeed)

	firewall := api.Group("/firewall")
	firewall.GET("/status", h.FirewallStatus)
	firewall.GET("/rules", h.ListFirewallRules)
	firewall.POST("/rules", h.CreateFirewallRule)
	firewall.DELETE("/rules/:id", h.DeleteFirewallRule)
	firewall.PUT("/rules/:id/toggle", h.ToggleFirewallRule)
	firewall.GET("/events", h.FirewallEvents)
	firewall.GET("/stats/daily", h.FirewallDailyStats)
	firewall.GET("/config", h.GetFirewallConfig)
	firewall.PUT("/config", h.UpdateFirewallConfig)
	firewall.POST("/sync/threats", h.SyncFirewallThreatRules)
	firewall.POST("/sync/ports", h.SyncFirewallPortRules)
	firewall.POST("/adapter/install", h.ReinstallFirewallAdapter)
}
