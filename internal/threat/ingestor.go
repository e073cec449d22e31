// Package threat ingests open-source threat-intelligence feeds:
// scheduled fetch, /24 subnet aggregation with privacy-preserving HMAC
// hashing, weighted scoring, and expiring-indicator storage.
package threat

import (
	"context"
	"net/http"
	"time"

	"github.com/bigr-systems/guardian/internal/threat/feeds"
)

// DefaultExpiryDays is the indicator retention window when
// THREAT_EXPIRY_DAYS is unset.
const DefaultExpiryDays = 90

// defaultFeedTimeout bounds a single feed's fetch:
// "per-feed timeout; exceeding it records the failure but does not
// abort the sync."
const defaultFeedTimeout = 30 * time.Second

// ParserConfig binds a feed parser to the registry metadata it syncs
// under.
type ParserConfig struct {
	Parser   feeds.Parser
	FeedURL  string
	FeedType string
}

// Ingestor runs ParserConfig's feeds against a Store.
type Ingestor struct {
	Store       *Store
	Parsers     []ParserConfig
	HTTPClient  *http.Client
	HMACKey     string
	ExpiryDays  int
	FeedTimeout time.Duration
	FeedWeights map[string]float64 // nil uses the package default table
	TypeWeights map[string]float64
}

// New builds an Ingestor, applying defaults for anything left
// zero.
func New(store *Store, parsers []ParserConfig, hmacKey string) *Ingestor {
	return &Ingestor{
		Store:       store,
		Parsers:     parsers,
		HTTPClient:  &http.Client{Timeout: defaultFeedTimeout},
		HMACKey:     ResolveHMACKey(hmacKey),
		ExpiryDays:  DefaultExpiryDays,
		FeedTimeout: defaultFeedTimeout,
	}
}

// FeedSyncResult summarises one feed's sync attempt.
type FeedSyncResult struct {
	Feed              string
	IndicatorsFetched int
	SubnetsAffected   int
	Err               error
}

// SyncSummary aggregates every feed's result plus the retention
// sweep, mirroring sync_all_feeds's return dict.
type SyncSummary struct {
	FeedsSynced     int
	TotalIndicators int
	Errors          []string
	Details         []FeedSyncResult
	ExpiredCleaned  int
}

// SyncAll implements sync_all: ensure registry rows,
// fetch every enabled feed with a bounded per-feed timeout, aggregate
// and upsert indicators, update feed metadata, then sweep expired
// rows. A single feed's failure is recorded and does not abort the
// others.
func (in *Ingestor) SyncAll(ctx context.Context) SyncSummary {
	now := time.Now()
	summary := SyncSummary{}

	for _, pc := range in.Parsers {
		in.Store.EnsureFeed(pc.Parser.Name(), pc.FeedURL, pc.FeedType)
	}

	for _, f := range in.Store.Feeds() {
		if !f.Enabled {
			continue
		}
		pc, ok := in.parserFor(f.Name)
		if !ok {
			continue
		}
		result := in.syncFeed(ctx, pc, now)
		summary.Details = append(summary.Details, result)
		if result.Err != nil {
			summary.Errors = append(summary.Errors, result.Feed+": "+result.Err.Error())
			continue
		}
		summary.FeedsSynced++
		summary.TotalIndicators += result.IndicatorsFetched
	}

	summary.ExpiredCleaned = in.Store.SweepExpired(now)
	return summary
}

// SyncFeed runs a single named feed, the per-feed sync endpoint's
// entry point.
func (in *Ingestor) SyncFeed(ctx context.Context, name string) FeedSyncResult {
	pc, ok := in.parserFor(name)
	if !ok {
		return FeedSyncResult{Feed: name, Err: errUnknownFeed(name)}
	}
	return in.syncFeed(ctx, pc, time.Now())
}

func (in *Ingestor) parserFor(name string) (ParserConfig, bool) {
	for _, pc := range in.Parsers {
		if pc.Parser.Name() == name {
			return pc, true
		}
	}
	return ParserConfig{}, false
}

func (in *Ingestor) syncFeed(ctx context.Context, pc ParserConfig, now time.Time) FeedSyncResult {
	timeout := in.FeedTimeout
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	indicators, err := pc.Parser.Fetch(fctx, in.HTTPClient)
	if err != nil {
		return FeedSyncResult{Feed: pc.Parser.Name(), Err: err}
	}

	grouped := groupBySubnet(indicators)
	expiresAt := now.AddDate(0, 0, in.expiryDays())
	scoreFn := func(f, t []string) float64 { return Score(f, t, in.feedWeights(), in.typeWeights()) }

	for subnet, g := range grouped {
		hash := HashSubnet(in.HMACKey, subnet)
		prefix := ""
		if len(g.ips) > 0 && IsPrivate(g.ips[0]) {
			prefix = subnet
		}
		in.Store.Upsert(hash, prefix, setKeys(g.feeds), setKeys(g.types), now, expiresAt, scoreFn)
	}

	in.Store.RecordFeedSync(pc.Parser.Name(), len(indicators), now)

	return FeedSyncResult{
		Feed:              pc.Parser.Name(),
		IndicatorsFetched: len(indicators),
		SubnetsAffected:   len(grouped),
	}
}

// Lookup implements lookup(ip).
func (in *Ingestor) Lookup(ip string) (Indicator, bool) {
	subnet, err := Subnet24(ip)
	if err != nil {
		return Indicator{}, false
	}
	hash := HashSubnet(in.HMACKey, subnet)
	return in.Store.Lookup(hash, time.Now())
}

func (in *Ingestor) expiryDays() int {
	if in.ExpiryDays <= 0 {
		return DefaultExpiryDays
	}
	return in.ExpiryDays
}

func (in *Ingestor) feedWeights() map[string]float64 {
	if in.FeedWeights != nil {
		return in.FeedWeights
	}
	return FeedWeights
}

func (in *Ingestor) typeWeights() map[string]float64 {
	if in.TypeWeights != nil {
		return in.TypeWeights
	}
	return TypeWeights
}

type subnetGroup struct {
	ips   []string
	types map[string]struct{}
	feeds map[string]struct{}
}

// groupBySubnet buckets raw indicators into their /24 subnets.
func groupBySubnet(indicators []feeds.Indicator) map[string]*subnetGroup {
	out := map[string]*subnetGroup{}
	for _, ind := range indicators {
		subnet, err := Subnet24(ind.IP)
		if err != nil {
			continue
		}
		g, ok := out[subnet]
		if !ok {
			g = &subnetGroup{types: map[string]struct{}{}, feeds: map[string]struct{}{}}
			out[subnet] = g
		}
		g.ips = append(g.ips, ind.IP)
		g.types[ind.IndicatorType] = struct{}{}
		g.feeds[ind.SourceFeed] = struct{}{}
	}
	return out
}

func setKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

type unknownFeedError string

func (e unknownFeedError) Error() string { return "threat: unknown feed " + string(e) }

func errUnknownFeed(name string) error { return unknownFeedError(name) }
