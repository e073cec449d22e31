// Package adapters is the platform-specific layer that pushes
// firewall.Rule sets into the host's native packet filter.
//
// The firewall.Adapter interface lives in internal/firewall, not
// here: each concrete type below implements it structurally, so this
// package depends on firewall (for Rule/AdapterStatus) but firewall
// never depends on this package, avoiding an import cycle.
package adapters

import "github.com/bigr-systems/guardian/internal/firewall"

// Status is an alias for firewall.AdapterStatus, kept so adapter
// implementations in this package can refer to it locally.
type Status = firewall.AdapterStatus
