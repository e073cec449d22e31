package threat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirewallBridgeOnlySurfacesIndicatorsWithAPrefix(t *testing.T) {
	store := NewStore()
	now := time.Now()
	scoreFn := func(f, t []string) float64 { return 0.9 }

	privateHash := HashSubnet("secret", "10.0.0.0/24")
	store.Upsert(privateHash, "10.0.0.0/24", []string{"X"}, []string{"malicious"}, now, now.Add(time.Hour), scoreFn)

	publicHash := HashSubnet("secret", "198.51.100.0/24")
	store.Upsert(publicHash, "", []string{"X"}, []string{"malicious"}, now, now.Add(time.Hour), scoreFn)

	bridge := &FirewallBridge{Store: store}
	targets := bridge.HighScoringTargets(0.7)

	require.Len(t, targets, 1, "the public-subnet indicator has no recoverable target and must not surface")
	assert.Equal(t, "10.0.0.0/24", targets[0].Target)
	assert.Contains(t, targets[0].Reason, "0.90")
}

func TestFirewallBridgeRespectsThreshold(t *testing.T) {
	store := NewStore()
	now := time.Now()
	lowScore := func(f, t []string) float64 { return 0.3 }

	hash := HashSubnet("secret", "10.0.0.0/24")
	store.Upsert(hash, "10.0.0.0/24", []string{"X"}, []string{"malicious"}, now, now.Add(time.Hour), lowScore)

	bridge := &FirewallBridge{Store: store}
	assert.Empty(t, bridge.HighScoringTargets(0.7))
}
