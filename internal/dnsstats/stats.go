// Package dnsstats tracks query counters on two planes — a live
// "period" plane accumulated since the last flush and a "lifetime"
// plane that never resets — plus per-domain top-blocked tracking,
// flushed to persistence on a ticker.
package dnsstats

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Action mirrors decision.Verdict's string form without importing the
// decision package, keeping dnsstats usable standalone.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionSinkhole Action = "sinkhole"
	ActionError    Action = "error"
)

// plane is one set of query counters. Lifetime counters are never
// reset; period counters are zeroed by Flush.
type plane struct {
	total     atomic.Int64
	allowed   atomic.Int64
	blocked   atomic.Int64
	errored   atomic.Int64
	cacheHits atomic.Int64
}

func (p *plane) record(action Action, cacheHit bool) {
	p.total.Add(1)
	switch action {
	case ActionAllow:
		p.allowed.Add(1)
	case ActionSinkhole:
		p.blocked.Add(1)
	case ActionError:
		p.errored.Add(1)
	}
	if cacheHit {
		p.cacheHits.Add(1)
	}
}

func (p *plane) reset() {
	p.total.Store(0)
	p.allowed.Store(0)
	p.blocked.Store(0)
	p.errored.Store(0)
	p.cacheHits.Store(0)
}

// Snapshot is a point-in-time view of one counter plane.
type Snapshot struct {
	Total     int64
	Allowed   int64
	Blocked   int64
	Errored   int64
	CacheHits int64
}

func (p *plane) snapshot() Snapshot {
	return Snapshot{
		Total:     p.total.Load(),
		Allowed:   p.allowed.Load(),
		Blocked:   p.blocked.Load(),
		Errored:   p.errored.Load(),
		CacheHits: p.cacheHits.Load(),
	}
}

// Summary is Tracker's report, combining both planes with the current
// top-blocked-domain ranking.
type Summary struct {
	Period      Snapshot
	Lifetime    Snapshot
	TopBlocked  []DomainCount
	WindowStart time.Time
}

// DomainCount is one row of the top-blocked-domains ranking (guardian
// top_blocked_domains persistence row).
type DomainCount struct {
	Domain string
	Count  int64
}

// FlushFunc persists a Summary, e.g. upserting a guardian_query_stats
// row keyed by hour and guardian_top_blocked_domains rows.
type FlushFunc func(ctx context.Context, s Summary)

// Tracker accumulates query counters and flushes them periodically.
type Tracker struct {
	period   plane
	lifetime plane

	mu          sync.Mutex
	blockedHits map[string]int64
	windowStart time.Time

	flush        FlushFunc
	flushEvery   time.Duration
	topN         int
}

// Config configures a Tracker.
type Config struct {
	FlushEvery time.Duration // default 300s
	TopN       int           // default 10
	Flush      FlushFunc
}

// New creates a Tracker. Flush may be nil, in which case Run is a no-op
// ticker that simply resets the period plane without persisting.
func New(cfg Config) *Tracker {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 300 * time.Second
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	return &Tracker{
		blockedHits: map[string]int64{},
		windowStart: time.Now(),
		flush:       cfg.Flush,
		flushEvery:  cfg.FlushEvery,
		topN:        cfg.TopN,
	}
}

// RecordQuery records one completed query's outcome on both planes.
func (t *Tracker) RecordQuery(domain string, action Action, reason string, isCacheHit bool) {
	t.period.record(action, isCacheHit)
	t.lifetime.record(action, isCacheHit)

	if action == ActionSinkhole {
		t.mu.Lock()
		t.blockedHits[domain]++
		t.mu.Unlock()
	}
}

// Summary returns the current period/lifetime snapshot and top-blocked
// ranking without resetting anything.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	top := t.topBlockedLocked()
	windowStart := t.windowStart
	t.mu.Unlock()

	return Summary{
		Period:      t.period.snapshot(),
		Lifetime:    t.lifetime.snapshot(),
		TopBlocked:  top,
		WindowStart: windowStart,
	}
}

func (t *Tracker) topBlockedLocked() []DomainCount {
	out := make([]DomainCount, 0, len(t.blockedHits))
	for domain, count := range t.blockedHits {
		out = append(out, DomainCount{Domain: domain, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > t.topN {
		out = out[:t.topN]
	}
	return out
}

// Flush takes a Summary snapshot, persists it via FlushFunc (if set),
// and zeroes the period plane and per-domain window. An idle window
// (period total zero) is a no-op: nothing is persisted and the window
// keeps accumulating.
func (t *Tracker) Flush(ctx context.Context) {
	s := t.Summary()
	if s.Period.Total == 0 {
		return
	}
	if t.flush != nil {
		t.flush(ctx, s)
	}

	t.period.reset()
	t.mu.Lock()
	t.blockedHits = map[string]int64{}
	t.windowStart = time.Now()
	t.mu.Unlock()
}

// Run drives the periodic flush loop until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Flush(ctx)
		}
	}
}
