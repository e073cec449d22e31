package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ReputationBlacklistParser parses an AbuseIPDB-style bulk blacklist
// endpoint, filtering by a minimum confidence score. Grounded directly
// on fetchAbuseIPDB's GET /blacklist request shape (auth via the "Key"
// header) and response envelope.
type ReputationBlacklistParser struct {
	FeedName      string
	BaseURL       string
	APIKey        string
	MinConfidence int // 0-100, matches the provider's native scale
}

var _ Parser = (*ReputationBlacklistParser)(nil)

func (p *ReputationBlacklistParser) Name() string { return p.FeedName }

type abuseIPDBBlacklistEntry struct {
	IPAddress            string `json:"ipAddress"`
	AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
}

type abuseIPDBBlacklistResponse struct {
	Data []abuseIPDBBlacklistEntry `json:"data"`
}

// Fetch implements reputation-blacklist rule: every
// returned IP at or above MinConfidence becomes an indicator.
func (p *ReputationBlacklistParser) Fetch(ctx context.Context, client *http.Client) ([]Indicator, error) {
	if p.APIKey == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/blacklist?confidenceMinimum=%d", p.BaseURL, p.MinConfidence)
	resp, err := doRequest(ctx, client, http.MethodGet, url, nil, map[string]string{
		"Key":    p.APIKey,
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded abuseIPDBBlacklistResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	var out []Indicator
	for _, entry := range decoded.Data {
		if entry.AbuseConfidenceScore < p.MinConfidence {
			continue
		}
		out = append(out, Indicator{IP: entry.IPAddress, IndicatorType: "reputation_blacklist", SourceFeed: p.FeedName})
	}
	return out, nil
}
