package firewall

import (
	"fmt"
	"time"
)

// HighRiskPorts lists internet-facing ports worth an automatic
// block_port rule: FTP, Telnet, SMB, RTSP, MSSQL, MySQL, RDP,
// PostgreSQL, MongoDB. Services that should never be reachable from
// a home or small-office network's WAN side.
var HighRiskPorts = []int{21, 23, 445, 554, 1433, 3306, 3389, 5432, 27017}

// ThreatRuleSource abstracts the Threat Ingestor's high-scoring
// indicator feed, so Service doesn't need to import internal/threat
// directly (avoids an import cycle risk and keeps this package
// testable with a stub).
type ThreatRuleSource interface {
	// HighScoringTargets returns the IP or CIDR targets whose threat
	// score is at or above threshold, each with a reason and an expiry.
	HighScoringTargets(threshold float64) []ThreatTarget
}

// ThreatTarget is one threat-intel indicator projected to a
// block_ip candidate. Target is an IP or CIDR subnet, since threat
// indicators are tracked at /24 granularity.
type ThreatTarget struct {
	Target    string
	Reason    string
	ExpiresAt time.Time
}

// Service is CRUD over firewall rules plus the two auto-sync passes
// (threat intel, high-risk ports), dispatching every mutation to the
// platform Adapter.
type Service struct {
	Store   *Store
	Adapter Adapter

	// ThreatScoreThreshold is the minimum threat score an indicator
	// must reach before SyncThreatRules projects it to a block_ip
	// rule. Default 0.7.
	ThreatScoreThreshold float64
}

// NewService builds a Service, installing adapter so rules can be
// pushed immediately.
func NewService(store *Store, adapter Adapter) (*Service, error) {
	if err := adapter.Install(); err != nil {
		return nil, fmt.Errorf("firewall: adapter install: %w", err)
	}
	return &Service{Store: store, Adapter: adapter, ThreatScoreThreshold: 0.7}, nil
}

// AddRule validates and inserts a user-authored rule, then pushes the
// updated active set to the adapter.
func (s *Service) AddRule(r Rule) (Rule, error) {
	if err := validateRule(r); err != nil {
		return Rule{}, err
	}
	if r.Source == "" {
		r.Source = SourceUser
	}
	created, ok := s.Store.Add(r)
	if !ok {
		return Rule{}, fmt.Errorf("firewall: a rule for %s %s already exists", r.Type, r.Target)
	}
	return created, s.push()
}

// RemoveRule deactivates id and pushes the updated active set.
func (s *Service) RemoveRule(id string) error {
	if !s.Store.Remove(id) {
		return fmt.Errorf("firewall: rule %s not found", id)
	}
	return s.push()
}

// ToggleRule flips id's active flag and pushes the updated active
// set.
func (s *Service) ToggleRule(id string) (Rule, error) {
	r, ok := s.Store.Toggle(id)
	if !ok {
		return Rule{}, fmt.Errorf("firewall: rule %s not found", id)
	}
	return r, s.push()
}

// Rules lists rules, optionally filtered by type and active state.
func (s *Service) Rules(ruleType RuleType, activeOnly bool) []Rule {
	return s.Store.List(ruleType, activeOnly)
}

// SyncResult summarises an auto-sync pass, mirroring
// sync_threat_rules/sync_port_rules's return dict.
type SyncResult struct {
	Added   int
	Skipped int
}

// SyncThreatRules implements threat-intel auto-sync:
// pull every indicator at or above ThreatScoreThreshold from source,
// and insert a block_ip rule for each IP not already covered.
// Expired rules are swept first so a previously-expired block can be
// re-added if the indicator is still live.
func (s *Service) SyncThreatRules(source ThreatRuleSource) (SyncResult, error) {
	s.Store.ExpireOverdue(time.Now())

	result := SyncResult{}
	for _, t := range source.HighScoringTargets(s.ThreatScoreThreshold) {
		if s.Store.Has(RuleBlockIP, t.Target) {
			result.Skipped++
			continue
		}
		expiresAt := t.ExpiresAt
		_, ok := s.Store.Add(Rule{
			Type:      RuleBlockIP,
			Target:    t.Target,
			Direction: DirectionOutbound,
			Protocol:  ProtocolAny,
			Source:    SourceThreatIntel,
			Reason:    t.Reason,
			ExpiresAt: &expiresAt,
		})
		if ok {
			result.Added++
		} else {
			result.Skipped++
		}
	}
	return result, s.push()
}

// SyncPortRules implements high-risk-port auto-sync:
// insert a block_port rule, source=remediation, for every port in
// HighRiskPorts not already covered. These rules never expire.
func (s *Service) SyncPortRules() (SyncResult, error) {
	result := SyncResult{}
	for _, port := range HighRiskPorts {
		target := fmt.Sprintf("%d", port)
		if s.Store.Has(RuleBlockPort, target) {
			result.Skipped++
			continue
		}
		_, ok := s.Store.Add(Rule{
			Type:      RuleBlockPort,
			Target:    target,
			Direction: DirectionInbound,
			Protocol:  ProtocolTCP,
			Source:    SourceRemediation,
			Reason:    "high-risk internet-facing port",
		})
		if ok {
			result.Added++
		} else {
			result.Skipped++
		}
	}
	return result, s.push()
}

// StatusReport is the firewall status endpoint's payload, mirroring
// FirewallStatus in models.py.
type StatusReport struct {
	Enabled          bool
	Platform         string
	Engine           string
	TotalRules       int
	ActiveRules      int
	ProtectionLevel  string
	AdapterInstalled bool
}

// Status reports the adapter's state plus rule counts.
func (s *Service) Status() StatusReport {
	adapterStatus := s.Adapter.Status()
	all := s.Store.List("", false)
	active := 0
	for _, r := range all {
		if r.Active {
			active++
		}
	}
	level := "minimal"
	switch {
	case active >= 10:
		level = "strict"
	case active > 0:
		level = "balanced"
	}
	return StatusReport{
		Enabled:          adapterStatus.Installed,
		Platform:         adapterStatus.Platform,
		Engine:           adapterStatus.Engine,
		TotalRules:       len(all),
		ActiveRules:      active,
		ProtectionLevel:  level,
		AdapterInstalled: adapterStatus.Installed,
	}
}

func (s *Service) push() error {
	return s.Adapter.ApplyRules(s.Store.Active())
}

func validateRule(r Rule) error {
	switch r.Type {
	case RuleBlockIP, RuleBlockPort, RuleBlockDomain, RuleAllowIP, RuleAllowDomain:
	default:
		return fmt.Errorf("firewall: invalid rule type %q", r.Type)
	}
	if r.Target == "" {
		return fmt.Errorf("firewall: target must not be empty")
	}
	return nil
}
