package feeds

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
)

// URLJSONParser parses a URLhaus-style feed of recently reported
// malicious URLs, keeping only entries whose host is a bare IP.
type URLJSONParser struct {
	FeedName string
	URL      string
}

var _ Parser = (*URLJSONParser)(nil)

func (p *URLJSONParser) Name() string { return p.FeedName }

type urlhausEntry struct {
	URL string `json:"url"`
}

type urlhausResponse struct {
	URLs []urlhausEntry `json:"urls"`
}

// Fetch implements URL JSON rule: parse each URL, keep
// the host only when it is a numeric IP, and dedupe within the batch.
func (p *URLJSONParser) Fetch(ctx context.Context, client *http.Client) ([]Indicator, error) {
	resp, err := doRequest(ctx, client, http.MethodGet, p.URL, nil, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded urlhausResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var out []Indicator
	for _, entry := range decoded.URLs {
		u, err := url.Parse(entry.URL)
		if err != nil {
			continue
		}
		host := u.Hostname()
		if net.ParseIP(host) == nil {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, Indicator{IP: host, IndicatorType: "malicious_url", SourceFeed: p.FeedName})
	}
	return out, nil
}
