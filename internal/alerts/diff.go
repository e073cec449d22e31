package alerts

import (
	"fmt"
	"sort"
)

// Asset is one device observed in a scan snapshot, the external
// contract the device-classification pipeline supplies.
type Asset struct {
	IP              string
	MAC             string
	Category        string
	Vendor          string
	Hostname        string
	OpenPorts       []int
	ConfidenceScore float64
}

func (a Asset) key() assetKey { return assetKey{ip: a.IP, mac: a.MAC} }

type assetKey struct {
	ip  string
	mac string
}

// AssetChange is a single detected field change on an asset common to
// both snapshots.
type AssetChange struct {
	IP         string
	MAC        string
	ChangeType Type
	Field      string
	OldValue   string
	NewValue   string
}

// DiffResult is the structured comparison of two scan snapshots.
type DiffResult struct {
	NewAssets     []Asset
	RemovedAssets []Asset
	ChangedAssets []AssetChange
	UnchangedCount int
}

// HasChanges reports whether any additions, removals, or field
// changes were detected.
func (d DiffResult) HasChanges() bool {
	return len(d.NewAssets) > 0 || len(d.RemovedAssets) > 0 || len(d.ChangedAssets) > 0
}

// Summary is a human-readable one-line description of the diff.
func (d DiffResult) Summary() string {
	s := ""
	if len(d.NewAssets) > 0 {
		s += fmt.Sprintf("+%d new, ", len(d.NewAssets))
	}
	if len(d.RemovedAssets) > 0 {
		s += fmt.Sprintf("-%d removed, ", len(d.RemovedAssets))
	}
	if len(d.ChangedAssets) > 0 {
		s += fmt.Sprintf("~%d changed, ", len(d.ChangedAssets))
	}
	return s + fmt.Sprintf("=%d unchanged", d.UnchangedCount)
}

// trackedFields are the asset fields whose changes produce alerts.
// confidence_score moves on nearly every rescan and would be pure
// noise, so it is intentionally not diffed.
var trackedFields = []string{"open_ports", "bigr_category", "vendor", "hostname"}

func fieldChangeType(field string) Type {
	switch field {
	case "open_ports":
		return TypePortChange
	case "bigr_category":
		return TypeCategoryChange
	case "vendor":
		return TypeVendorChange
	case "hostname":
		return TypeHostnameChange
	default:
		return ""
	}
}

func fieldValue(a Asset, field string) string {
	switch field {
	case "open_ports":
		ports := append([]int(nil), a.OpenPorts...)
		sort.Ints(ports)
		return fmt.Sprint(ports)
	case "bigr_category":
		return a.Category
	case "vendor":
		return a.Vendor
	case "hostname":
		return a.Hostname
	default:
		return ""
	}
}

// DiffScans compares two asset snapshots by (ip, mac) identity.
func DiffScans(current, previous []Asset) DiffResult {
	prevMap := map[assetKey]Asset{}
	for _, a := range previous {
		prevMap[a.key()] = a
	}
	currMap := map[assetKey]Asset{}
	for _, a := range current {
		currMap[a.key()] = a
	}

	result := DiffResult{}

	for key, a := range currMap {
		if _, ok := prevMap[key]; !ok {
			result.NewAssets = append(result.NewAssets, a)
		}
	}
	for key, a := range prevMap {
		if _, ok := currMap[key]; !ok {
			result.RemovedAssets = append(result.RemovedAssets, a)
		}
	}

	for key, curr := range currMap {
		prev, ok := prevMap[key]
		if !ok {
			continue
		}
		changed := false
		for _, field := range trackedFields {
			oldVal := fieldValue(prev, field)
			newVal := fieldValue(curr, field)
			if oldVal != newVal {
				result.ChangedAssets = append(result.ChangedAssets, AssetChange{
					IP:         curr.IP,
					MAC:        curr.MAC,
					ChangeType: fieldChangeType(field),
					Field:      field,
					OldValue:   oldVal,
					NewValue:   newVal,
				})
				changed = true
			}
		}
		if !changed {
			result.UnchangedCount++
		}
	}

	sortAssets(result.NewAssets)
	sortAssets(result.RemovedAssets)
	sort.Slice(result.ChangedAssets, func(i, j int) bool {
		return result.ChangedAssets[i].IP < result.ChangedAssets[j].IP
	})

	return result
}

func sortAssets(assets []Asset) {
	sort.Slice(assets, func(i, j int) bool { return assets[i].IP < assets[j].IP })
}
