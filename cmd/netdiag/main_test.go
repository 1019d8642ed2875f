package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/util"
)

func TestRootCommands(t *testing.T) {
	want := []string{
		"ping", "gateway", "latency", "iface-ping", "speedtest", "download", "ports", "mtu",
		"dns", "dns-block", "captive", "traceroute", "mtr", "discover", "wifi", "netcat",
		"whois", "interfaces", "routes", "gateways", "public-ip", "dhcp", "prognosis",
		"history", "tools", "rules", "menu", "ui", "web", "config", "version", "completion",
	}
	for _, name := range want {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}

func TestProbeCommandsShareFlags(t *testing.T) {
	for _, c := range []string{"ping", "traceroute", "ports", "dhcp"} {
		cmd, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err)
		for _, f := range []string{"save", "json", "raw"} {
			assert.NotNil(t, cmd.Flags().Lookup(f), "%s --%s", c, f)
		}
	}
}

func TestMenuCoversProbeKinds(t *testing.T) {
	kinds := make(map[model.ProbeKind]bool)
	for _, item := range menuItems {
		kinds[item.kind] = true
	}
	assert.Len(t, kinds, len(menuItems))
	assert.True(t, kinds[model.KindPing])
	assert.True(t, kinds[model.KindDHCP])
	assert.True(t, kinds[model.KindDiscover])
}

func TestAskInvocation_NoInterfaces(t *testing.T) {
	prevCfg, prevNames := cfg, interfaceNames
	t.Cleanup(func() { cfg, interfaceNames = prevCfg, prevNames })
	cfg = util.DefaultConfig()
	interfaceNames = func() []string { return nil }

	var item menuItem
	for _, it := range menuItems {
		if it.kind == model.KindDiscover {
			item = it
		}
	}
	require.True(t, item.iface)

	inv, err := askInvocation(item)
	require.NoError(t, err)
	assert.Equal(t, model.KindDiscover, inv.Kind)
	assert.Empty(t, inv.Interface)
}

func TestPositiveInt(t *testing.T) {
	assert.NoError(t, positiveInt("4"))
	assert.NoError(t, positiveInt(" 10 "))
	assert.Error(t, positiveInt("0"))
	assert.Error(t, positiveInt("abc"))
}

func TestTargetArg(t *testing.T) {
	assert.Equal(t, "", targetArg(nil))
	assert.Equal(t, "1.1.1.1", targetArg([]string{"1.1.1.1"}))
}
