package firewall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a minimal in-memory Adapter double for exercising
// Service without a real platform firewall.
type fakeAdapter struct {
	installed bool
	applied   []Rule
}

func (a *fakeAdapter) Install() error   { a.installed = true; return nil }
func (a *fakeAdapter) Uninstall() error { a.installed = false; return nil }
func (a *fakeAdapter) ApplyRules(rules []Rule) error {
	a.applied = rules
	return nil
}
func (a *fakeAdapter) Status() AdapterStatus {
	return AdapterStatus{Platform: "fake", Engine: "fake", Installed: a.installed, RulesApplied: len(a.applied)}
}
func (a *fakeAdapter) PlatformName() string { return "fake" }

func TestStoreAddRejectsDuplicateTypeTarget(t *testing.T) {
	s := NewStore()
	_, ok := s.Add(Rule{Type: RuleBlockIP, Target: "203.0.113.1"})
	assert.True(t, ok)

	_, ok2 := s.Add(Rule{Type: RuleBlockIP, Target: "203.0.113.1"})
	assert.False(t, ok2, "duplicate (type, target) must be rejected")
}

func TestStoreRemoveThenAddSameTargetSucceeds(t *testing.T) {
	s := NewStore()
	r, _ := s.Add(Rule{Type: RuleBlockIP, Target: "203.0.113.1"})
	require.True(t, s.Remove(r.ID))

	_, ok := s.Add(Rule{Type: RuleBlockIP, Target: "203.0.113.1"})
	assert.True(t, ok, "removing a rule frees its (type, target) slot")
}

func TestStoreToggleFlipsActiveAndIndex(t *testing.T) {
	s := NewStore()
	r, _ := s.Add(Rule{Type: RuleBlockPort, Target: "23"})

	toggled, ok := s.Toggle(r.ID)
	require.True(t, ok)
	assert.False(t, toggled.Active)
	assert.False(t, s.Has(RuleBlockPort, "23"))

	toggled2, _ := s.Toggle(r.ID)
	assert.True(t, toggled2.Active)
	assert.True(t, s.Has(RuleBlockPort, "23"))
}

func TestStoreExpireOverdueDeactivatesOnlyExpiredRules(t *testing.T) {
	s := NewStore()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	r1, _ := s.Add(Rule{Type: RuleBlockIP, Target: "203.0.113.1", ExpiresAt: &past})
	r2, _ := s.Add(Rule{Type: RuleBlockIP, Target: "198.51.100.1", ExpiresAt: &future})

	n := s.ExpireOverdue(now)
	assert.Equal(t, 1, n)
	assert.False(t, s.Has(RuleBlockIP, r1.Target), "expired rule must drop out of the active index")

	active := s.List(RuleBlockIP, true)
	var targets []string
	for _, r := range active {
		targets = append(targets, r.Target)
	}
	assert.Contains(t, targets, r2.Target)
}

func TestServiceAddRulePushesActiveSetToAdapter(t *testing.T) {
	adapter := &fakeAdapter{}
	svc := &Service{Store: NewStore(), Adapter: adapter, ThreatScoreThreshold: 0.7}

	_, err := svc.AddRule(Rule{Type: RuleBlockIP, Target: "203.0.113.1"})
	require.NoError(t, err)
	assert.Len(t, adapter.applied, 1)
}

func TestServiceAddRuleRejectsInvalidType(t *testing.T) {
	svc := &Service{Store: NewStore(), Adapter: &fakeAdapter{}}
	_, err := svc.AddRule(Rule{Type: "bogus", Target: "x"})
	assert.Error(t, err)
}

type fakeThreatSource struct {
	targets []ThreatTarget
}

func (f *fakeThreatSource) HighScoringTargets(threshold float64) []ThreatTarget {
	return f.targets
}

func TestSyncThreatRulesInsertsOnlyNewTargets(t *testing.T) {
	svc := &Service{Store: NewStore(), Adapter: &fakeAdapter{}, ThreatScoreThreshold: 0.7}
	expiry := time.Now().Add(24 * time.Hour)
	src := &fakeThreatSource{targets: []ThreatTarget{
		{Target: "198.51.100.0/24", Reason: "threat score 0.8", ExpiresAt: expiry},
	}}

	result, err := svc.SyncThreatRules(src)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	result2, err := svc.SyncThreatRules(src)
	require.NoError(t, err)
	assert.Equal(t, 0, result2.Added)
	assert.Equal(t, 1, result2.Skipped, "re-sync of the same indicator must not duplicate the rule")
}

func TestSyncPortRulesCreatesRemediationRulesForEveryHighRiskPort(t *testing.T) {
	svc := &Service{Store: NewStore(), Adapter: &fakeAdapter{}}
	result, err := svc.SyncPortRules()
	require.NoError(t, err)
	assert.Equal(t, len(HighRiskPorts), result.Added)

	for _, r := range svc.Store.List(RuleBlockPort, true) {
		assert.Equal(t, SourceRemediation, r.Source)
		assert.Nil(t, r.ExpiresAt)
	}
}

func TestServiceStatusReportsRuleCounts(t *testing.T) {
	adapter := &fakeAdapter{}
	svc := &Service{Store: NewStore(), Adapter: adapter}
	svc.AddRule(Rule{Type: RuleBlockIP, Target: "203.0.113.1"})

	status := svc.Status()
	assert.Equal(t, 1, status.TotalRules)
	assert.Equal(t, 1, status.ActiveRules)
}
