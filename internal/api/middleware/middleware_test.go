package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(key string) *gin.Engine {
	r := gin.New()
	r.Use(RequireAPIKey(key))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRequireAPIKey(t *testing.T) {
	cases := []struct {
		name       string
		serverKey  string
		clientKey  string
		wantStatus int
	}{
		{"matching key", "s3cret", "s3cret", http.StatusOK},
		{"wrong key", "s3cret", "nope", http.StatusUnauthorized},
		{"missing key", "s3cret", "", http.StatusUnauthorized},
		{"auth disabled", "", "", http.StatusOK},
		{"auth disabled ignores header", "", "anything", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.clientKey != "" {
				req.Header.Set("X-API-Key", tc.clientKey)
			}
			w := httptest.NewRecorder()
			authRouter(tc.serverKey).ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestRequireAPIKeyAbortsChain(t *testing.T) {
	r := gin.New()
	reached := false
	r.Use(RequireAPIKey("s3cret"))
	r.GET("/x", func(c *gin.Context) { reached = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, reached, "handler must not run without a valid key")
}

func TestSlogRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(SlogRequestLogger(slog.Default()))
	r.GET("/logged", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logged", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSlogRequestLoggerNilLogger(t *testing.T) {
	r := gin.New()
	r.Use(SlogRequestLogger(nil))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
