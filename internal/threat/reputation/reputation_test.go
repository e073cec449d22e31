package reputation

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReturnsFalseWithoutAPIKey(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid"})
	_, ok := c.Check(t.Context(), "203.0.113.1")
	assert.False(t, ok)
}

func TestCheckNormalisesConfidenceAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "secret", r.Header.Get("Key"))
		w.Write([]byte(`{"data":{"ipAddress":"203.0.113.1","abuseConfidenceScore":80,"countryCode":"US","isp":"Example ISP","totalReports":12,"lastReportedAt":"2026-07-01T00:00:00Z"}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret"})
	c.httpClient = srv.Client()

	result, ok := c.Check(t.Context(), "203.0.113.1")
	require.True(t, ok)
	assert.InDelta(t, 0.80, result.Score, 0.0001)
	assert.Equal(t, 12, result.TotalReports)

	// second call within TTL must hit the cache, not the server.
	_, ok2 := c.Check(t.Context(), "203.0.113.1")
	require.True(t, ok2)
	assert.Equal(t, 1, calls)
}

func TestCheckEnforcesDailyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"ipAddress":"203.0.113.1","abuseConfidenceScore":50}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret", DailyLimit: 1})
	c.httpClient = srv.Client()
	c.limiter.SetLimit(1000) // avoid pacing delay slowing the test

	_, ok := c.Check(t.Context(), "203.0.113.1")
	require.True(t, ok)

	_, ok2 := c.Check(t.Context(), "198.51.100.1") // distinct IP, still capped by the daily counter
	assert.False(t, ok2)
}

func TestCheckDegradesToNoneOnTransportFailure(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0", APIKey: "secret"})
	c.limiter.SetLimit(1000)
	_, ok := c.Check(t.Context(), "203.0.113.1")
	assert.False(t, ok)
}

func TestNormalizeScoreClampsOutOfRange(t *testing.T) {
	assert.Equal(t, 0.0, normalizeScore(-5))
	assert.Equal(t, 1.0, normalizeScore(150))
	assert.InDelta(t, 0.42, normalizeScore(42), 0.0001)
}

func TestCallsTodayResetsOnNewCalendarDay(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid", APIKey: "secret"})
	c.callCount = 5
	c.callDay = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	assert.Equal(t, 0, c.CallsToday())
}
