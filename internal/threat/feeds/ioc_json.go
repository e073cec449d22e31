package feeds

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// IOCJSONParser parses a ThreatFox-style IOC feed: a POST query body
// returns a JSON array of indicators-of-compromise tagged with an
// ioc_type that decides how the address is extracted.
type IOCJSONParser struct {
	FeedName string
	URL      string
	Query    string // request body, e.g. {"query":"get_iocs","days":1}
}

var _ Parser = (*IOCJSONParser)(nil)

func (p *IOCJSONParser) Name() string { return p.FeedName }

type threatFoxIOC struct {
	IOCType string `json:"ioc_type"`
	IOC     string `json:"ioc"`
}

type threatFoxResponse struct {
	Data []threatFoxIOC `json:"data"`
}

// Fetch implements IOC JSON rule: for ip:port take the IP
// by splitting on the last colon, for url parse and take the host,
// for anything else take the value verbatim; keep the result only if
// it parses as an IP.
func (p *IOCJSONParser) Fetch(ctx context.Context, client *http.Client) ([]Indicator, error) {
	body := []byte(p.Query)
	resp, err := doRequest(ctx, client, http.MethodPost, p.URL, body, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded threatFoxResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	var out []Indicator
	for _, ioc := range decoded.Data {
		ip := extractIOCAddress(ioc.IOCType, ioc.IOC)
		if ip == "" {
			continue
		}
		out = append(out, Indicator{IP: ip, IndicatorType: ioc.IOCType, SourceFeed: p.FeedName})
	}
	return out, nil
}

func extractIOCAddress(iocType, raw string) string {
	var candidate string
	switch iocType {
	case "ip:port":
		if idx := strings.LastIndex(raw, ":"); idx != -1 {
			candidate = raw[:idx]
		} else {
			candidate = raw
		}
	case "url":
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		candidate = u.Hostname()
	default:
		candidate = raw
	}
	if net.ParseIP(candidate) == nil {
		return ""
	}
	return candidate
}
