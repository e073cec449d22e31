package guardian

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/bigr-systems/guardian/internal/blocklist"
	"github.com/bigr-systems/guardian/internal/resolve"
)

// CheckStatus is one health check's outcome.
type CheckStatus string

const (
	StatusOK   CheckStatus = "ok"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// CheckResult is a single named health check's outcome.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
}

// HealthChecker runs the daemon's diagnostic checks against live
// components.
type HealthChecker struct {
	Resolver          *resolve.Resolver
	Blocklist         *blocklist.Store
	StaleAfter        time.Duration // blocklist freshness threshold, default 48h
	DNSProbeTimeout   time.Duration // default 2s
	UpstreamProbeAddr string        // host:port to dial for reachability, e.g. the fallback
}

// CheckAll runs every check and returns their combined results.
func (h *HealthChecker) CheckAll(ctx context.Context) []CheckResult {
	return []CheckResult{
		h.CheckDNSResolution(ctx),
		h.CheckUpstreamReachable(ctx),
		h.CheckBlocklistFreshness(),
	}
}

// CheckDNSResolution verifies the resolver can answer a known-good
// query end to end.
func (h *HealthChecker) CheckDNSResolution(ctx context.Context) CheckResult {
	if h.Resolver == nil {
		return CheckResult{Name: "dns_resolution", Status: StatusFail, Message: "resolver not configured"}
	}

	timeout := h.DNSProbeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := h.Resolver.Resolve(probeCtx, healthProbeQuery())
	if err != nil {
		return CheckResult{Name: "dns_resolution", Status: StatusFail, Message: err.Error()}
	}
	return CheckResult{Name: "dns_resolution", Status: StatusOK}
}

// CheckUpstreamReachable dials the configured upstream fallback
// address over UDP, independent of whether a full query round-trips
// successfully. The dial sends no packet, so it fails only on local
// errors such as an unresolvable address or no route.
func (h *HealthChecker) CheckUpstreamReachable(ctx context.Context) CheckResult {
	if h.UpstreamProbeAddr == "" {
		return CheckResult{Name: "upstream_reachable", Status: StatusWarn, Message: "no upstream probe address configured"}
	}

	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "udp", h.UpstreamProbeAddr)
	if err != nil {
		return CheckResult{Name: "upstream_reachable", Status: StatusFail, Message: err.Error()}
	}
	_ = conn.Close()
	return CheckResult{Name: "upstream_reachable", Status: StatusOK}
}

// CheckBlocklistFreshness flags sources that haven't synced within
// StaleAfter (default 48h).
func (h *HealthChecker) CheckBlocklistFreshness() CheckResult {
	if h.Blocklist == nil {
		return CheckResult{Name: "blocklist_freshness", Status: StatusWarn, Message: "blocklist store not configured"}
	}

	staleAfter := h.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 48 * time.Hour
	}

	var stale []string
	for _, src := range h.Blocklist.Sources() {
		if !src.Enabled {
			continue
		}
		if src.LastUpdated.IsZero() || time.Since(src.LastUpdated) > staleAfter {
			stale = append(stale, src.Name)
		}
	}
	if len(stale) > 0 {
		return CheckResult{Name: "blocklist_freshness", Status: StatusWarn, Message: fmt.Sprintf("stale sources: %v", stale)}
	}
	return CheckResult{Name: "blocklist_freshness", Status: StatusOK}
}

// healthProbeQuery builds a minimal well-formed A query for
// "example.com" used as the resolver liveness probe.
func healthProbeQuery() []byte {
	return []byte{
		0x00, 0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		3, 'c', 'o', 'm',
		0,
		0x00, 0x01,
		0x00, 0x01,
	}
}
