package threat

import (
	"sort"
	"sync"
	"time"
)

// Feed is a registered parser's metadata (threat_feeds row).
type Feed struct {
	ID           int64
	Name         string
	URL          string
	FeedType     string
	Enabled      bool
	LastSyncedAt time.Time
	EntriesCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Indicator is a merged per-/24-subnet threat record
// (threat_indicators row), identified by SubnetHash.
type Indicator struct {
	SubnetHash     string
	SubnetPrefix   string // clear-text only for private/CGNAT representatives
	ThreatScore    float64
	SourceFeeds    []string
	IndicatorTypes []string
	CVERefs        []string
	FirstSeen      time.Time
	LastSeen       time.Time
	ReportCount    int
	ExpiresAt      time.Time
}

// Store holds the in-memory feed registry and indicator table the
// Ingestor mutates, mirroring rules.Store's in-memory-index-backed-by-
// persistence shape.
type Store struct {
	mu         sync.Mutex
	nextFeedID int64
	feeds      map[string]*Feed
	indicators map[string]*Indicator
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		feeds:      map[string]*Feed{},
		indicators: map[string]*Indicator{},
	}
}

// LoadFeeds seeds the registry from persistence at startup.
func (s *Store) LoadFeeds(existing []*Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range existing {
		s.feeds[f.Name] = f
		if f.ID >= s.nextFeedID {
			s.nextFeedID = f.ID + 1
		}
	}
}

// LoadIndicators seeds the indicator table from persistence at
// startup.
func (s *Store) LoadIndicators(existing []*Indicator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ind := range existing {
		s.indicators[ind.SubnetHash] = ind
	}
}

// EnsureFeed registers a parser's identity if it isn't already
// known, defaulting to enabled.
func (s *Store) EnsureFeed(name, url, feedType string) *Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.feeds[name]; ok {
		return f
	}
	s.nextFeedID++
	now := time.Now()
	f := &Feed{
		ID: s.nextFeedID, Name: name, URL: url, FeedType: feedType,
		Enabled: true, CreatedAt: now, UpdatedAt: now,
	}
	s.feeds[name] = f
	return f
}

// Feeds returns a snapshot of every registered feed, sorted by name.
func (s *Store) Feeds() []Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RecordFeedSync updates a feed's last_synced_at and entries_count
// after a successful fetch.
func (s *Store) RecordFeedSync(name string, entries int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[name]
	if !ok {
		return
	}
	f.LastSyncedAt = now
	f.EntriesCount = entries
	f.UpdatedAt = now
}

// Upsert merges into an existing indicator or inserts a new one:
// feed and type sets are merged and the score recomputed under the
// same lock as the read, so a concurrent lookup never observes a torn
// update.
// scoreFn receives the post-merge feed/type sets.
func (s *Store) Upsert(subnetHash, subnetPrefix string, feedNames, typeNames []string, now, expiresAt time.Time, scoreFn func(feeds, types []string) float64) Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.indicators[subnetHash]; ok {
		existing.SourceFeeds = unionSorted(existing.SourceFeeds, feedNames)
		existing.IndicatorTypes = unionSorted(existing.IndicatorTypes, typeNames)
		existing.ThreatScore = scoreFn(existing.SourceFeeds, existing.IndicatorTypes)
		existing.LastSeen = now
		existing.ReportCount++
		if expiresAt.After(existing.ExpiresAt) {
			existing.ExpiresAt = expiresAt
		}
		if subnetPrefix != "" && existing.SubnetPrefix == "" {
			existing.SubnetPrefix = subnetPrefix
		}
		return *existing
	}

	feedsSorted := unionSorted(nil, feedNames)
	typesSorted := unionSorted(nil, typeNames)
	ind := &Indicator{
		SubnetHash:     subnetHash,
		SubnetPrefix:   subnetPrefix,
		ThreatScore:    scoreFn(feedsSorted, typesSorted),
		SourceFeeds:    feedsSorted,
		IndicatorTypes: typesSorted,
		FirstSeen:      now,
		LastSeen:       now,
		ReportCount:    1,
		ExpiresAt:      expiresAt,
	}
	s.indicators[subnetHash] = ind
	return *ind
}

// Lookup returns the indicator only while it hasn't expired; an
// expired row is indistinguishable from an absent one.
func (s *Store) Lookup(subnetHash string, now time.Time) (Indicator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ind, ok := s.indicators[subnetHash]
	if !ok || !ind.ExpiresAt.After(now) {
		return Indicator{}, false
	}
	return *ind, true
}

// HighScoring returns every non-expired indicator at or above
// threshold, used by the Firewall Service's sync_threat_rules.
func (s *Store) HighScoring(threshold float64, now time.Time) []Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Indicator
	for _, ind := range s.indicators {
		if ind.ExpiresAt.After(now) && ind.ThreatScore >= threshold {
			out = append(out, *ind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubnetHash < out[j].SubnetHash })
	return out
}

// SweepExpired deletes every indicator whose expires_at has passed,
// returning the count removed.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for hash, ind := range s.indicators {
		if !ind.ExpiresAt.After(now) {
			delete(s.indicators, hash)
			n++
		}
	}
	return n
}

func unionSorted(existing, additions []string) []string {
	set := map[string]struct{}{}
	for _, e := range existing {
		set[e] = struct{}{}
	}
	for _, a := range additions {
		set[a] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
