package alerts

import (
	"fmt"
	"strings"
)

// fieldChangeSeverity ranks field changes: port/vendor/hostname
// changes are informational, category changes (a reclassification
// into a higher-risk bucket) warrant a warning.
var fieldChangeSeverity = map[Type]Severity{
	TypePortChange:     SeverityInfo,
	TypeCategoryChange: SeverityWarning,
	TypeVendorChange:   SeverityInfo,
	TypeHostnameChange: SeverityInfo,
}

// RogueRule is a user-defined condition that promotes a new device to
// a rogue_device alert.
type RogueRule struct {
	IPPrefix  string
	MACPrefix string
	Severity  Severity
}

func (r RogueRule) matches(a Asset) bool {
	if r.IPPrefix != "" && strings.HasPrefix(a.IP, r.IPPrefix) {
		return true
	}
	if r.MACPrefix != "" && strings.HasPrefix(a.MAC, r.MACPrefix) {
		return true
	}
	return false
}

// DefaultMassThreshold is the number of new devices that triggers a
// mass_change alert when the caller doesn't override it.
const DefaultMassThreshold = 10

// EvaluateDiff converts a DiffResult into alerts. massThreshold <= 0
// uses DefaultMassThreshold.
func EvaluateDiff(diff DiffResult, rogueRules []RogueRule, massThreshold int) []Alert {
	if massThreshold <= 0 {
		massThreshold = DefaultMassThreshold
	}

	var out []Alert

	for _, asset := range diff.NewAssets {
		out = append(out, Alert{
			Type:     TypeNewDevice,
			Severity: SeverityWarning,
			IP:       asset.IP,
			MAC:      asset.MAC,
			Message:  fmt.Sprintf("new device detected: %s", asset.IP),
			Details:  map[string]any{"asset": asset},
		})

		for _, rule := range rogueRules {
			if !rule.matches(asset) {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = SeverityCritical
			}
			out = append(out, Alert{
				Type:     TypeRogueDevice,
				Severity: sev,
				IP:       asset.IP,
				MAC:      asset.MAC,
				Message:  fmt.Sprintf("rogue device detected: %s", asset.IP),
				Details:  map[string]any{"asset": asset, "rule": rule},
			})
		}
	}

	if len(diff.NewAssets) >= massThreshold {
		out = append(out, Alert{
			Type:     TypeMassChange,
			Severity: SeverityCritical,
			IP:       "0.0.0.0",
			Message:  fmt.Sprintf("mass change: %d new devices detected", len(diff.NewAssets)),
			Details:  map[string]any{"count": len(diff.NewAssets)},
		})
	}

	for _, asset := range diff.RemovedAssets {
		out = append(out, Alert{
			Type:     TypeDeviceMissing,
			Severity: SeverityInfo,
			IP:       asset.IP,
			MAC:      asset.MAC,
			Message:  fmt.Sprintf("device missing: %s", asset.IP),
			Details:  map[string]any{"asset": asset},
		})
	}

	for _, change := range diff.ChangedAssets {
		sev, ok := fieldChangeSeverity[change.ChangeType]
		if !ok {
			continue
		}
		out = append(out, Alert{
			Type:     change.ChangeType,
			Severity: sev,
			IP:       change.IP,
			MAC:      change.MAC,
			Message:  fmt.Sprintf("%s on %s: %s -> %s", change.ChangeType, change.IP, change.OldValue, change.NewValue),
			Details: map[string]any{
				"field":     change.Field,
				"old_value": change.OldValue,
				"new_value": change.NewValue,
			},
		})
	}

	return out
}
