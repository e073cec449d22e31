package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigr-systems/guardian/internal/firewall"
)

func TestMacOSAdapterInstallApplyStatus(t *testing.T) {
	a := NewMacOSAdapter()
	require.NoError(t, a.Install())
	require.NoError(t, a.ApplyRules([]firewall.Rule{{Type: firewall.RuleBlockIP, Target: "203.0.113.1"}}))

	status := a.Status()
	assert.Equal(t, "macos", status.Platform)
	assert.True(t, status.Installed)
	assert.Equal(t, 1, status.RulesApplied)
	assert.Equal(t, "macos", a.PlatformName())
}

func TestWindowsAdapterInstallApplyStatus(t *testing.T) {
	a := NewWindowsAdapter()
	require.NoError(t, a.Install())
	require.NoError(t, a.ApplyRules([]firewall.Rule{
		{Type: firewall.RuleBlockIP, Target: "203.0.113.1"},
		{Type: firewall.RuleBlockPort, Target: "23"},
	}))

	status := a.Status()
	assert.Equal(t, "windows", status.Platform)
	assert.Equal(t, 2, status.RulesApplied)
	assert.Equal(t, bigrSublayerKey, status.Detail["sublayer"])
}

func TestUninstallResetsState(t *testing.T) {
	a := NewMacOSAdapter()
	require.NoError(t, a.Install())
	require.NoError(t, a.ApplyRules([]firewall.Rule{{Type: firewall.RuleAllowIP, Target: "203.0.113.1"}}))
	require.NoError(t, a.Uninstall())

	status := a.Status()
	assert.False(t, status.Installed)
	assert.Equal(t, 0, status.RulesApplied)
}

func TestNewResolvesRequestedPlatform(t *testing.T) {
	macAdapter, err := New("macos")
	require.NoError(t, err)
	assert.Equal(t, "macos", macAdapter.PlatformName())

	winAdapter, err := New("windows")
	require.NoError(t, err)
	assert.Equal(t, "windows", winAdapter.PlatformName())
}

func TestNewRejectsUnknownPlatform(t *testing.T) {
	_, err := New("amiga")
	assert.Error(t, err)
}

func TestResolveTargetAddrAcceptsIPAndCIDR(t *testing.T) {
	ip := resolveTargetAddr("203.0.113.7")
	require.NotNil(t, ip)
	assert.Equal(t, "203.0.113.7", ip.String())

	network := resolveTargetAddr("198.51.100.0/24")
	require.NotNil(t, network)
	assert.Equal(t, "198.51.100.0", network.String())

	assert.Nil(t, resolveTargetAddr("not-an-address"))
}
