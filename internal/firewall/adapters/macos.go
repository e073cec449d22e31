package adapters

import "github.com/bigr-systems/guardian/internal/firewall"

// MacOSAdapter stands in for a macOS NEFilterDataProvider Network
// Extension. A real implementation ships a Swift system extension and
// talks to it over XPC; that extension target is out of scope here,
// so this adapter records the rule set it would have pushed and
// reports itself as a stub.
type MacOSAdapter struct {
	installed    bool
	rulesApplied int
}

// NewMacOSAdapter constructs a MacOSAdapter.
func NewMacOSAdapter() *MacOSAdapter { return &MacOSAdapter{} }

func (a *MacOSAdapter) Install() error {
	a.installed = true
	return nil
}

func (a *MacOSAdapter) Uninstall() error {
	a.installed = false
	a.rulesApplied = 0
	return nil
}

// ApplyRules records the rule count that would be serialised to the
// Network Extension over XPC.
func (a *MacOSAdapter) ApplyRules(rules []firewall.Rule) error {
	a.rulesApplied = len(rules)
	return nil
}

func (a *MacOSAdapter) Status() Status {
	return Status{
		Platform:     "macos",
		Engine:       "ne_filter_stub",
		Installed:    a.installed,
		RulesApplied: a.rulesApplied,
		RequiresRoot: false,
		Detail: map[string]string{
			"requires_entitlement": "com.apple.developer.networking.networkextension",
			"note":                 "full enforcement requires a Swift Network Extension target",
		},
	}
}

func (a *MacOSAdapter) PlatformName() string { return "macos" }
