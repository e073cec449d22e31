// Package reputation provides rate-limited, cached, single-IP lookups
// against an AbuseIPDB-style reputation API, bounded by a daily call
// budget that resets with the calendar day.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is a normalised single-IP reputation record.
type Result struct {
	IP             string
	Score          float64 // provider confidence scaled to [0, 1]
	Confidence     int     // raw 0-100 provider confidence
	TotalReports   int
	CountryCode    string
	ISP            string
	LastReportedAt time.Time
}

const (
	defaultDailyLimit = 1000
	defaultCacheTTL   = 24 * time.Hour
	defaultTimeout    = 10 * time.Second
)

type cacheEntry struct {
	result     Result
	insertedAt time.Time
}

// Client is the AbuseIPDB-style reputation client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	dailyLimit int
	cacheTTL   time.Duration
	limiter    *rate.Limiter

	mu        sync.Mutex
	cache     map[string]cacheEntry
	callCount int
	callDay   string
}

// Config configures a Client; zero values take the defaults below.
type Config struct {
	BaseURL    string
	APIKey     string
	DailyLimit int
	CacheTTL   time.Duration
}

// New builds a Client from Config.
func New(cfg Config) *Client {
	dailyLimit := cfg.DailyLimit
	if dailyLimit <= 0 {
		dailyLimit = defaultDailyLimit
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		dailyLimit: dailyLimit,
		cacheTTL:   cacheTTL,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		cache:      map[string]cacheEntry{},
	}
}

// Check implements check(ip) five-step contract: no key
// means no enrichment, a fresh cache entry short-circuits the call,
// the daily call budget is enforced before any request goes out, and
// any transport or non-2xx failure degrades to "none" rather than an
// error the caller must handle.
func (c *Client) Check(ctx context.Context, ip string) (Result, bool) {
	if c.apiKey == "" {
		return Result{}, false
	}

	c.mu.Lock()
	if entry, ok := c.cache[ip]; ok && time.Since(entry.insertedAt) < c.cacheTTL {
		c.mu.Unlock()
		return entry.result, true
	}
	c.resetIfNewDayLocked()
	if c.callCount >= c.dailyLimit {
		c.mu.Unlock()
		return Result{}, false
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, false
	}

	result, err := c.fetch(ctx, ip)
	if err != nil {
		return Result{}, false
	}

	c.mu.Lock()
	c.callCount++
	c.cache[ip] = cacheEntry{result: result, insertedAt: time.Now()}
	c.mu.Unlock()

	return result, true
}

// CallsToday reports how many requests this client has made since the
// calendar day last rolled over, for diagnostics/health checks.
func (c *Client) CallsToday() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfNewDayLocked()
	return c.callCount
}

func (c *Client) resetIfNewDayLocked() {
	today := time.Now().Format("2006-01-02")
	if c.callDay != today {
		c.callDay = today
		c.callCount = 0
	}
}

type abuseIPDBCheckResponse struct {
	Data struct {
		IPAddress            string `json:"ipAddress"`
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		CountryCode          string `json:"countryCode"`
		ISP                  string `json:"isp"`
		TotalReports         int    `json:"totalReports"`
		LastReportedAt       string `json:"lastReportedAt"`
	} `json:"data"`
}

func (c *Client) fetch(ctx context.Context, ip string) (Result, error) {
	reqURL := fmt.Sprintf("%s/check?ipAddress=%s", c.baseURL, url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("reputation: unexpected status %d", resp.StatusCode)
	}

	var decoded abuseIPDBCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, err
	}

	lastReported, _ := time.Parse(time.RFC3339, decoded.Data.LastReportedAt)
	return Result{
		IP:             decoded.Data.IPAddress,
		Score:          normalizeScore(decoded.Data.AbuseConfidenceScore),
		Confidence:     decoded.Data.AbuseConfidenceScore,
		TotalReports:   decoded.Data.TotalReports,
		CountryCode:    decoded.Data.CountryCode,
		ISP:            decoded.Data.ISP,
		LastReportedAt: lastReported,
	}, nil
}

// normalizeScore scales a 0-100 provider confidence to [0, 1],
// clamping out-of-range inputs.
func normalizeScore(confidence int) float64 {
	score := float64(confidence) / 100.0
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
