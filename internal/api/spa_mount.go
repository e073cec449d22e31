package api

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// MountSPA serves the management dashboard's static build output from
// dir. Unlike an embedded bundle, the appliance image ships the
// dashboard as a plain directory next to the binary so it can be
// updated independently; when dir does not exist the API runs
// dashboard-less and only /api and /swagger routes respond.
func MountSPA(r *gin.Engine, dir string, logger *slog.Logger) {
	fs := static.LocalFile(dir, false)
	r.Use(static.Serve("/", fs))

	index := filepath.Join(dir, "index.html")
	r.NoRoute(func(c *gin.Context) {
		// Only serve index.html for non-API routes
		uri := c.Request.RequestURI
		if strings.HasPrefix(uri, "/api") || strings.HasPrefix(uri, "/swagger") {
			return
		}
		logger.Debug("spa fallback", "path", uri)
		http.ServeFile(c.Writer, c.Request, index)
	})
}
