package threat

import (
	"fmt"
	"strings"
	"time"

	"github.com/bigr-systems/guardian/internal/firewall"
)

// FirewallBridge adapts a Store to firewall.ThreatRuleSource, so the
// Firewall Service's sync_threat_rules pass can consume high-scoring
// indicators without the threat package depending on firewall.
type FirewallBridge struct {
	Store *Store
}

// HighScoringTargets implements firewall.ThreatRuleSource.
//
// subnet_hash is a one-way HMAC: the Store never retains the
// plaintext address of a public subnet,
// so only indicators whose subnet_prefix was preserved — private
// (RFC 1918) or CGNAT (RFC 6598) ranges, per HashSubnet's ingest-time
// classification — can be projected to a block_ip rule at all. A
// high-scoring public subnet has no recoverable target and is simply
// not surfaced here; it remains visible via the threat API for
// manual investigation.
func (b *FirewallBridge) HighScoringTargets(threshold float64) []firewall.ThreatTarget {
	now := time.Now()
	var out []firewall.ThreatTarget
	for _, ind := range b.Store.HighScoring(threshold, now) {
		if ind.SubnetPrefix == "" {
			continue
		}
		out = append(out, firewall.ThreatTarget{
			Target:    ind.SubnetPrefix,
			Reason:    formatThreatReason(ind),
			ExpiresAt: ind.ExpiresAt,
		})
	}
	return out
}

func formatThreatReason(ind Indicator) string {
	return fmt.Sprintf("threat score %.2f from %s", ind.ThreatScore, strings.Join(ind.SourceFeeds, ","))
}
