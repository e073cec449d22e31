// Package decision is a pure function from a domain name to an
// allow/block decision, consulting the rules index before the
// blocklist index.
package decision

import (
	"github.com/bigr-systems/guardian/internal/blocklist"
	"github.com/bigr-systems/guardian/internal/rules"
)

// Verdict is the engine's instruction to the DNS Server.
type Verdict string

const (
	Resolve   Verdict = "resolve"   // forward upstream
	Sinkhole  Verdict = "sinkhole"  // answer with the sinkhole IP
)

// Reason explains why a Verdict was reached.
type Reason string

const (
	ReasonCustomAllow  Reason = "custom_allow"
	ReasonCustomBlock  Reason = "custom_block"
	ReasonBlocklist    Reason = "blocklist"
	ReasonDefaultAllow Reason = "default_allow"
)

// Decision is the engine's output.
type Decision struct {
	Verdict  Verdict
	Reason   Reason
	Category string
	RuleID   int64 // zero unless Reason is custom_allow/custom_block
}

// RulesChecker is the subset of rules.Store consulted by Decide.
type RulesChecker interface {
	Check(domain string) (rules.Action, int64, string, bool)
}

// BlocklistChecker is the subset of blocklist.Store consulted by Decide.
type BlocklistChecker interface {
	IsBlocked(fqdn string) (bool, string)
}

// Decide evaluates a domain against the rule index then the blocklist
// index, in strict priority order:
//
//  1. Rule says allow  -> allow,   reason=custom_allow,  resolve
//  2. Rule says block   -> block,   reason=custom_block,  sinkhole
//  3. Blocklist match   -> block,   reason=blocklist,     sinkhole
//  4. Otherwise          -> allow,   reason=default_allow,  resolve
//
// Decide is a pure function of its inputs: the same domain against the
// same rules and blocklist state always returns the same Decision.
func Decide(domain string, r RulesChecker, b BlocklistChecker) Decision {
	if action, ruleID, category, found := r.Check(domain); found {
		if action == rules.Allow {
			return Decision{Verdict: Resolve, Reason: ReasonCustomAllow, Category: category, RuleID: ruleID}
		}
		return Decision{Verdict: Sinkhole, Reason: ReasonCustomBlock, Category: category, RuleID: ruleID}
	}

	if blocked, category := b.IsBlocked(domain); blocked {
		return Decision{Verdict: Sinkhole, Reason: ReasonBlocklist, Category: category}
	}

	return Decision{Verdict: Resolve, Reason: ReasonDefaultAllow}
}

var (
	_ RulesChecker     = (*rules.Store)(nil)
	_ BlocklistChecker = (*blocklist.Store)(nil)
)
