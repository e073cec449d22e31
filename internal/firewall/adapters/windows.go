package adapters

import "github.com/bigr-systems/guardian/internal/firewall"

// bigrSublayerKey names the WFP sublayer a real implementation would
// register every filter under.
const bigrSublayerKey = "guardian-filter-sublayer-0001"

// WindowsAdapter stands in for a Windows Filtering Platform (WFP)
// adapter. A production build would call the WFP Win32 API
// (FwpmEngineOpen0/FwpmFilterAdd0) via a cgo or syscall binding; that
// binding is out of scope here, so this adapter records state and
// reports itself as a stub.
type WindowsAdapter struct {
	installed    bool
	rulesApplied int
}

// NewWindowsAdapter constructs a WindowsAdapter.
func NewWindowsAdapter() *WindowsAdapter { return &WindowsAdapter{} }

func (a *WindowsAdapter) Install() error {
	a.installed = true
	return nil
}

func (a *WindowsAdapter) Uninstall() error {
	a.installed = false
	a.rulesApplied = 0
	return nil
}

// ApplyRules records the rule count that would be translated into
// FWPM_FILTER0 descriptors and added via FwpmFilterAdd0.
func (a *WindowsAdapter) ApplyRules(rules []firewall.Rule) error {
	a.rulesApplied = len(rules)
	return nil
}

func (a *WindowsAdapter) Status() Status {
	return Status{
		Platform:     "windows",
		Engine:       "wfp_stub",
		Installed:    a.installed,
		RulesApplied: a.rulesApplied,
		RequiresRoot: true,
		Detail: map[string]string{
			"sublayer": bigrSublayerKey,
			"note":     "full enforcement requires the WFP Win32 API via FwpmEngineOpen0/FwpmFilterAdd0",
		},
	}
}

func (a *WindowsAdapter) PlatformName() string { return "windows" }
