// Package resolve forwards unresolved queries upstream: DoH primary,
// plain-UDP fallback, with singleflight de-duplication of identical
// in-flight queries.
package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrBothFailed is returned when both DoH and the UDP fallback fail.
var ErrBothFailed = errors.New("resolve: upstream and fallback both failed")

const dnsMessageContentType = "application/dns-message"

// Config configures a Resolver.
type Config struct {
	DoHURL       string        // e.g. https://dns.example.com/dns-query
	FallbackAddr string        // host:port of a plain-DNS fallback server
	DoHTimeout   time.Duration // default 2s
	UDPTimeout   time.Duration // default 2s
}

// Resolver forwards wire-format DNS questions upstream.
type Resolver struct {
	httpClient   *http.Client
	dohURL       string
	fallbackAddr string
	dohTimeout   time.Duration
	udpTimeout   time.Duration

	group singleflight.Group
}

// New creates a Resolver with a shared HTTP client reused across
// queries and closed (via Close, which simply drops the idle
// connections) at daemon shutdown.
func New(cfg Config) *Resolver {
	if cfg.DoHTimeout <= 0 {
		cfg.DoHTimeout = 2 * time.Second
	}
	if cfg.UDPTimeout <= 0 {
		cfg.UDPTimeout = 2 * time.Second
	}
	return &Resolver{
		httpClient:   &http.Client{Timeout: cfg.DoHTimeout},
		dohURL:       cfg.DoHURL,
		fallbackAddr: cfg.FallbackAddr,
		dohTimeout:   cfg.DoHTimeout,
		udpTimeout:   cfg.UDPTimeout,
	}
}

// Close releases idle connections held by the resolver's HTTP client.
func (r *Resolver) Close() {
	r.httpClient.CloseIdleConnections()
}

// Resolve forwards reqBytes (a complete wire-format DNS question,
// including its 12-byte header) to the DoH endpoint, falling back to
// plain UDP against FallbackAddr on transport or non-2xx failure.
// Concurrent calls for byte-identical questions (modulo transaction
// ID) are coalesced into a single upstream round trip.
func (r *Resolver) Resolve(ctx context.Context, reqBytes []byte) ([]byte, error) {
	key := dedupeKey(reqBytes)

	v, err, _ := r.group.Do(key, func() (any, error) {
		resp, dohErr := r.resolveDoH(ctx, reqBytes)
		if dohErr == nil {
			return resp, nil
		}
		resp, udpErr := r.resolveUDPFallback(ctx, reqBytes)
		if udpErr == nil {
			return resp, nil
		}
		return nil, fmt.Errorf("%w (doh: %v, udp: %v)", ErrBothFailed, dohErr, udpErr)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// dedupeKey groups identical questions regardless of the 2-byte
// transaction ID, which differs per caller even for the same
// underlying question.
func dedupeKey(reqBytes []byte) string {
	if len(reqBytes) < 2 {
		return string(reqBytes)
	}
	return string(reqBytes[2:])
}

func (r *Resolver) resolveDoH(ctx context.Context, reqBytes []byte) ([]byte, error) {
	if r.dohURL == "" {
		return nil, errors.New("resolve: no DoH endpoint configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.dohTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.dohURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("resolve: build doh request: %w", err)
	}
	req.Header.Set("Content-Type", dnsMessageContentType)
	req.Header.Set("Accept", dnsMessageContentType)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve: doh transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("resolve: doh status %d", resp.StatusCode)
	}

	body := make([]byte, 0, 512)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	if len(body) == 0 {
		return nil, errors.New("resolve: empty doh response body")
	}
	return body, nil
}

func (r *Resolver) resolveUDPFallback(ctx context.Context, reqBytes []byte) ([]byte, error) {
	if r.fallbackAddr == "" {
		return nil, errors.New("resolve: no fallback server configured")
	}

	addr := r.fallbackAddr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "53")
	}

	dialer := net.Dialer{Timeout: r.udpTimeout}
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve: udp dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(r.udpTimeout))

	if _, err := conn.Write(reqBytes); err != nil {
		return nil, fmt.Errorf("resolve: udp write: %w", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("resolve: udp read: %w", err)
	}
	return buf[:n], nil
}
