// Package feeds holds the format-specific threat-feed parsers: each
// one turns a raw feed response into a list of Indicators the
// ingestor can aggregate.
package feeds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Indicator is a single (ip, type) pair attributed to the feed that
// produced it.
type Indicator struct {
	IP            string
	IndicatorType string
	SourceFeed    string
}

// Parser fetches and normalises one feed's indicators using a shared
// HTTP client.
type Parser interface {
	Name() string
	Fetch(ctx context.Context, client *http.Client) ([]Indicator, error)
}

// doRequest is the shared request/response plumbing every parser in
// this package uses.
func doRequest(ctx context.Context, client *http.Client, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("feeds: unexpected status %d from %s: %s", resp.StatusCode, url, string(respBody))
	}
	return resp, nil
}
