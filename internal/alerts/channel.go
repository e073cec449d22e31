package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Channel delivers a single Alert. Send returns whether delivery
// succeeded; a false return is logged and absorbed by the caller —
// one channel's failure must never block another's delivery.
type Channel interface {
	Send(alert Alert) bool
}

// LogChannel appends alerts to a local log file, one line per
// alert.
type LogChannel struct {
	Path string
}

func (c *LogChannel) Send(alert Alert) bool {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return false
	}
	f, err := os.OpenFile(c.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	defer f.Close()

	line := fmt.Sprintf("%s [%s] %s | %s | %s\n",
		alert.Timestamp.Format(time.RFC3339), alert.Severity, alert.Type, alert.IP, alert.Message)
	_, err = f.WriteString(line)
	return err == nil
}

// WebhookChannel POSTs the alert as JSON to the ALERT_WEBHOOK_URL
// endpoint with a bounded timeout.
type WebhookChannel struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookChannel builds a WebhookChannel with the default
// 10-second delivery timeout.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{URL: url, HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

func (c *WebhookChannel) Send(alert Alert) bool {
	if c.URL == "" {
		return false
	}
	payload, err := json.Marshal(webhookBody(alert))
	if err != nil {
		return false
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequest(http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func webhookBody(alert Alert) map[string]any {
	return map[string]any{
		"id":        alert.ID,
		"type":      alert.Type,
		"severity":  alert.Severity,
		"ip":        alert.IP,
		"mac":       alert.MAC,
		"message":   alert.Message,
		"details":   alert.Details,
		"timestamp": alert.Timestamp.Format(time.RFC3339),
	}
}

// ChannelConfig pairs a Channel with the minimum severity it
// accepts; alerts below the floor are skipped for that channel only.
type ChannelConfig struct {
	Channel     Channel
	MinSeverity Severity
	Name        string
}

// Dispatch sends every alert to every channel whose severity floor it
// clears, counting a delivery once per (alert, channel). A channel's
// failure is absorbed and does not affect the others. Returns the
// total number of successful deliveries.
func Dispatch(alertsToSend []Alert, channels []ChannelConfig) int {
	successes := 0
	for _, alert := range alertsToSend {
		for _, cc := range channels {
			if alert.Severity.Level() < cc.MinSeverity.Level() {
				continue
			}
			if cc.Channel.Send(alert) {
				successes++
			}
		}
	}
	return successes
}
