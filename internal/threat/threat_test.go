package threat

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigr-systems/guardian/internal/threat/feeds"
)

func TestScoreMatchesInitialIngestScenario(t *testing.T) {
	// First ingest: feed X (weight 0.9), type "malicious" (weight
	// 0.7) -> 0.40*0.9 + 0.45*0.7 + 0.05 = 0.725.
	score := Score([]string{"X"}, []string{"malicious"},
		map[string]float64{"X": 0.9, "Y": 0.7},
		map[string]float64{"malicious": 0.7, "scanner": 0.5})
	assert.InDelta(t, 0.725, score, 0.0001)
}

func TestScoreMatchesReingestMergeScenario(t *testing.T) {
	// Same scenario, after merging feed Y (0.7) and type "scanner"
	// (0.5): mean(0.9,0.7)=0.8, max(0.7,0.5)=0.7, diversity=0.10 ->
	// 0.40*0.8 + 0.45*0.7 + 0.10 = 0.735.
	score := Score([]string{"X", "Y"}, []string{"malicious", "scanner"},
		map[string]float64{"X": 0.9, "Y": 0.7},
		map[string]float64{"malicious": 0.7, "scanner": 0.5})
	assert.InDelta(t, 0.735, score, 0.0001)
}

func TestScoreFallsBackToDefaultWeightForUnknownNames(t *testing.T) {
	score := Score([]string{"unknown-feed"}, []string{"unknown-type"}, map[string]float64{}, map[string]float64{})
	assert.InDelta(t, 0.5*0.40+0.5*0.45+0.05, score, 0.0001)
}

func TestDiversityBonusCapsAtFifteenPercent(t *testing.T) {
	score := Score([]string{"a", "b", "c", "d", "e"}, []string{"malicious"}, map[string]float64{}, TypeWeights)
	// mean of five unknown feeds = 0.5, severity 0.7, diversity capped at 0.15.
	assert.InDelta(t, 0.5*0.40+0.7*0.45+0.15, score, 0.0001)
}

func TestSubnet24DerivesNetworkAddress(t *testing.T) {
	subnet, err := Subnet24("198.51.100.231")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.0/24", subnet)
}

func TestIsPrivateRecognizesRFC1918AndCGNAT(t *testing.T) {
	assert.True(t, IsPrivate("10.1.2.3"))
	assert.True(t, IsPrivate("192.168.1.1"))
	assert.True(t, IsPrivate("100.64.0.5"))
	assert.False(t, IsPrivate("198.51.100.1"))
}

func TestStoreUpsertMergeMonotonicity(t *testing.T) {
	store := NewStore()
	now := time.Now()
	later := now.Add(time.Hour)
	scoreFn := func(f, t []string) float64 { return 0.5 }

	hash := HashSubnet("secret", "198.51.100.0/24")
	first := store.Upsert(hash, "", []string{"X"}, []string{"malicious"}, now, now.Add(24*time.Hour), scoreFn)
	assert.Equal(t, 1, first.ReportCount)

	second := store.Upsert(hash, "", []string{"Y"}, []string{"scanner"}, later, later.Add(12*time.Hour), scoreFn)
	assert.Equal(t, 2, second.ReportCount)
	assert.ElementsMatch(t, []string{"X", "Y"}, second.SourceFeeds)
	assert.ElementsMatch(t, []string{"malicious", "scanner"}, second.IndicatorTypes)
	assert.True(t, second.LastSeen.Equal(later))

	// expires_at never shortens: the first expiry (now+24h) is later
	// than the second ingest's now+12h, so it must be preserved.
	assert.True(t, second.ExpiresAt.Equal(now.Add(24*time.Hour)))
}

func TestStorePrivateSubnetKeepsPrefixPublicDoesNot(t *testing.T) {
	store := NewStore()
	now := time.Now()
	scoreFn := func(f, t []string) float64 { return 0.5 }

	privateHash := HashSubnet("secret", "10.0.0.0/24")
	pub := store.Upsert(privateHash, "10.0.0.0/24", []string{"X"}, []string{"malicious"}, now, now.Add(time.Hour), scoreFn)
	assert.Equal(t, "10.0.0.0/24", pub.SubnetPrefix)

	publicHash := HashSubnet("secret", "198.51.100.0/24")
	noPrefix := store.Upsert(publicHash, "", []string{"X"}, []string{"malicious"}, now, now.Add(time.Hour), scoreFn)
	assert.Empty(t, noPrefix.SubnetPrefix)
}

func TestStoreLookupHonoursExpiry(t *testing.T) {
	store := NewStore()
	now := time.Now()
	scoreFn := func(f, t []string) float64 { return 0.5 }
	hash := HashSubnet("secret", "198.51.100.0/24")
	store.Upsert(hash, "", []string{"X"}, []string{"malicious"}, now, now.Add(-time.Minute), scoreFn)

	_, ok := store.Lookup(hash, now)
	assert.False(t, ok, "an already-expired row must not be returned")
}

func TestStoreSweepExpiredRemovesOnlyExpiredRows(t *testing.T) {
	store := NewStore()
	now := time.Now()
	scoreFn := func(f, t []string) float64 { return 0.5 }
	expiredHash := HashSubnet("secret", "198.51.100.0/24")
	liveHash := HashSubnet("secret", "203.0.113.0/24")
	store.Upsert(expiredHash, "", []string{"X"}, []string{"malicious"}, now, now.Add(-time.Minute), scoreFn)
	store.Upsert(liveHash, "", []string{"X"}, []string{"malicious"}, now, now.Add(time.Hour), scoreFn)

	removed := store.SweepExpired(now)
	assert.Equal(t, 1, removed)
	_, liveOK := store.Lookup(liveHash, now)
	assert.True(t, liveOK)
}

type stubParser struct {
	name string
	out  []feeds.Indicator
	err  error
}

func (s *stubParser) Name() string { return s.name }
func (s *stubParser) Fetch(ctx context.Context, client *http.Client) ([]feeds.Indicator, error) {
	return s.out, s.err
}

func TestIngestorSyncAllGroupsBySubnetAndContinuesPastFailures(t *testing.T) {
	store := NewStore()
	good := &stubParser{name: "firehol_level1", out: []feeds.Indicator{
		{IP: "198.51.100.5", IndicatorType: "malicious", SourceFeed: "firehol_level1"},
		{IP: "198.51.100.9", IndicatorType: "malicious", SourceFeed: "firehol_level1"},
	}}
	bad := &stubParser{name: "broken_feed", err: assertError("boom")}

	ing := New(store, []ParserConfig{
		{Parser: good, FeedURL: "http://good.invalid", FeedType: "plain_ip_list"},
		{Parser: bad, FeedURL: "http://bad.invalid", FeedType: "plain_ip_list"},
	}, "secret")

	summary := ing.SyncAll(t.Context())
	assert.Equal(t, 1, summary.FeedsSynced)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, 2, summary.TotalIndicators)

	ind, ok := ing.Lookup("198.51.100.5")
	require.True(t, ok)
	assert.Equal(t, []string{"firehol_level1"}, ind.SourceFeeds)
	assert.Equal(t, 1, ind.ReportCount)
}

func TestIngestorSweepsExpiredAfterSync(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.Upsert(HashSubnet("secret", "203.0.113.0/24"), "", []string{"X"}, []string{"malicious"}, now, now.Add(-time.Minute), func(f, t []string) float64 { return 0.5 })

	ing := New(store, nil, "secret")
	summary := ing.SyncAll(t.Context())
	assert.Equal(t, 1, summary.ExpiredCleaned)
}

type assertError string

func (e assertError) Error() string { return string(e) }
