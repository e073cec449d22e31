package firewall

// AdapterStatus is adapter-specific diagnostic state, returned by
// Status() for the firewall status endpoint.
type AdapterStatus struct {
	Platform     string
	Engine       string
	Installed    bool
	RulesApplied int
	RequiresRoot bool
	Detail       map[string]string
}

// Adapter pushes a Rule set to the platform firewall. Every platform
// implements the full interface; platforms lacking native support for
// a concern report it through Status rather than erroring. Concrete
// implementations live in internal/firewall/adapters so this package
// never depends on a specific platform's native bindings.
type Adapter interface {
	// Install activates the adapter: creates the table/chain/engine
	// handle the adapter needs before rules can be applied.
	Install() error

	// Uninstall tears down whatever Install created.
	Uninstall() error

	// ApplyRules replaces the adapter's active rule set with rules.
	// Implementations apply rules atomically where the platform
	// allows it (nftables batch, WFP transaction) so there is no
	// window with a partial rule set.
	ApplyRules(rules []Rule) error

	// Status reports adapter-specific diagnostic state.
	Status() AdapterStatus

	// PlatformName identifies the adapter, e.g. "linux".
	PlatformName() string
}
