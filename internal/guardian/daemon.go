// Package guardian is the daemon core: process lifecycle (PID file
// acquisition, graceful shutdown) and wiring of the DNS server,
// blocklist/rules stores, stats tracker, and health checks into one
// runnable unit.
package guardian

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bigr-systems/guardian/internal/blocklist"
	"github.com/bigr-systems/guardian/internal/dnscache"
	"github.com/bigr-systems/guardian/internal/dnsstats"
	"github.com/bigr-systems/guardian/internal/firewall"
	"github.com/bigr-systems/guardian/internal/guardiandns"
	"github.com/bigr-systems/guardian/internal/resolve"
	"github.com/bigr-systems/guardian/internal/rules"
	"github.com/bigr-systems/guardian/internal/threat"
)

// ErrAlreadyRunning is returned by AcquirePIDFile when another live
// process holds the PID file.
var ErrAlreadyRunning = errors.New("guardian: another instance is already running")

// AcquirePIDFile takes the single-instance lock: if path contains a
// PID that is still alive, refuse to start; otherwise (missing, stale,
// or unreadable) overwrite it with the current PID.
// The returned release func removes the file and must be called on
// shutdown.
func AcquirePIDFile(path string) (release func(), err error) {
	if data, readErr := os.ReadFile(path); readErr == nil {
		if pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil {
			if pid > 0 && processAlive(pid) {
				return nil, fmt.Errorf("%w: pid %d", ErrAlreadyRunning, pid)
			}
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return nil, fmt.Errorf("guardian: write pidfile %s: %w", path, err)
	}
	return func() { _ = os.Remove(path) }, nil
}

// processAlive reports whether pid refers to a live process, using the
// signal-0 probe: unix.Kill with signal 0 performs permission/existence
// checks without actually delivering a signal.
func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

// Components bundles the subsystems a Daemon wires together. Callers
// assemble these from persistence at startup (rules.Store.Load,
// blocklist sync) before passing them in.
type Components struct {
	Logger    *slog.Logger
	Cache     *dnscache.Cache
	Resolver  *resolve.Resolver
	Rules     *rules.Store
	Blocklist *blocklist.Store
	Stats     *dnsstats.Tracker

	// Threat and Firewall are optional: a nil field disables
	// that subsystem's background loop entirely rather than erroring,
	// so e.g. a deployment without an AbuseIPDB key can still run DNS
	// filtering on its own.
	Threat             *threat.Ingestor
	ThreatSyncEvery    time.Duration // default 6h
	Firewall           *firewall.Service
	FirewallRuleSource firewall.ThreatRuleSource
	FirewallSyncEvery  time.Duration // default 1h

	DNSHost    string
	DNSPort    int
	SinkholeIP string
	EnableTCP  bool
}

// Daemon owns the running DNS listeners and background loops.
type Daemon struct {
	logger *slog.Logger
	addr   string
	udp    *guardiandns.UDPServer
	tcp    *guardiandns.TCPServer
	stats  *dnsstats.Tracker

	threat            *threat.Ingestor
	threatSyncEvery   time.Duration
	firewall          *firewall.Service
	firewallRuleSource firewall.ThreatRuleSource
	firewallSyncEvery time.Duration

	wg sync.WaitGroup
}

// New assembles a Daemon from Components.
func New(c Components) *Daemon {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	sinkhole := net.ParseIP(c.SinkholeIP)
	if sinkhole == nil {
		sinkhole = net.IPv4(0, 0, 0, 0)
	}

	handler := guardiandns.New(guardiandns.Config{
		Logger:     c.Logger,
		Cache:      c.Cache,
		Resolver:   c.Resolver,
		Rules:      c.Rules,
		Blocklist:  c.Blocklist,
		Stats:      c.Stats,
		SinkholeIP: sinkhole,
	})

	threatSyncEvery := c.ThreatSyncEvery
	if threatSyncEvery <= 0 {
		threatSyncEvery = 6 * time.Hour
	}
	firewallSyncEvery := c.FirewallSyncEvery
	if firewallSyncEvery <= 0 {
		firewallSyncEvery = time.Hour
	}

	d := &Daemon{
		logger:             c.Logger,
		addr:               fmt.Sprintf("%s:%d", c.DNSHost, c.DNSPort),
		udp:                &guardiandns.UDPServer{Logger: c.Logger, Handler: handler},
		stats:              c.Stats,
		threat:             c.Threat,
		threatSyncEvery:    threatSyncEvery,
		firewall:           c.Firewall,
		firewallRuleSource: c.FirewallRuleSource,
		firewallSyncEvery:  firewallSyncEvery,
	}
	if c.EnableTCP {
		d.tcp = &guardiandns.TCPServer{Logger: c.Logger, Handler: handler}
	}
	return d
}

// Run starts the UDP listener (and TCP, if enabled) plus the stats
// flush loop and, when configured, the threat-feed sync loop and the
// firewall threat/port rule sync loop, blocking until ctx is
// cancelled, then draining every subsystem with a bounded grace
// period.
func (d *Daemon) Run(ctx context.Context) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.udp.Run(ctx, d.addr); err != nil {
			d.logger.ErrorContext(ctx, "udp server exited", "error", err)
		}
	}()

	if d.tcp != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.tcp.Run(ctx, d.addr); err != nil {
				d.logger.ErrorContext(ctx, "tcp server exited", "error", err)
			}
		}()
	}

	if d.stats != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.stats.Run(ctx)
		}()
	}

	if d.threat != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runThreatSyncLoop(ctx)
		}()
	}

	if d.firewall != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runFirewallSyncLoop(ctx)
		}()
	}

	<-ctx.Done()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("guardian: timeout waiting for subsystems to stop")
	}
}

// runThreatSyncLoop runs the Threat Ingestor's full feed sync on a
// fixed interval, logging each summary. It runs once immediately on
// startup so indicators are populated before the first tick.
func (d *Daemon) runThreatSyncLoop(ctx context.Context) {
	d.syncThreatFeeds(ctx)

	ticker := time.NewTicker(d.threatSyncEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.syncThreatFeeds(ctx)
		}
	}
}

func (d *Daemon) syncThreatFeeds(ctx context.Context) {
	summary := d.threat.SyncAll(ctx)
	d.logger.InfoContext(ctx, "threat feed sync complete",
		"feeds_synced", summary.FeedsSynced,
		"total_indicators", summary.TotalIndicators,
		"errors", summary.Errors,
	)
}

// runFirewallSyncLoop periodically projects high-scoring threat
// indicators and high-risk ports into firewall rules. Port rules rarely change,
// but re-running them is cheap and idempotent (SyncPortRules skips
// ports already present), so both run on the same tick.
func (d *Daemon) runFirewallSyncLoop(ctx context.Context) {
	d.syncFirewallRules(ctx)

	ticker := time.NewTicker(d.firewallSyncEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.syncFirewallRules(ctx)
		}
	}
}

func (d *Daemon) syncFirewallRules(ctx context.Context) {
	if _, err := d.firewall.SyncPortRules(); err != nil {
		d.logger.ErrorContext(ctx, "firewall port-rule sync failed", "error", err)
	}
	if d.firewallRuleSource == nil {
		return
	}
	result, err := d.firewall.SyncThreatRules(d.firewallRuleSource)
	if err != nil {
		d.logger.ErrorContext(ctx, "firewall threat-rule sync failed", "error", err)
		return
	}
	d.logger.InfoContext(ctx, "firewall threat-rule sync complete", "added", result.Added, "skipped", result.Skipped)
}
