package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
)

var (
	pingCount int
	pingIface string
)

var pingCmd = &cobra.Command{
	Use:   "ping [target]",
	Short: "Ping a host with a custom count",
	Long: `Ping a host and report loss, latency and jitter.

Examples:
  netdiag ping
  netdiag ping 1.1.1.1 --count 20 --save`,
	Args: cobra.MaximumNArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		if pingCount < 1 {
			return model.ProbeInvocation{}, fmt.Errorf("count must be at least 1")
		}
		return model.ProbeInvocation{Kind: model.KindPing, Target: targetArg(args), Count: pingCount}, nil
	}),
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Ping the default gateway",
	Long: `Detect the default gateway from the routing table and ping it.

High loss or latency to the gateway points at the local link rather than
the wider path.`,
	Args: cobra.NoArgs,
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindGatewayPing}, nil
	}),
}

var latencyCmd = &cobra.Command{
	Use:   "latency [target]",
	Short: "Measure latency and jitter",
	Args:  cobra.MaximumNArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindLatency, Target: targetArg(args)}, nil
	}),
}

var ifacePingCmd = &cobra.Command{
	Use:   "iface-ping [target]",
	Short: "Ping through a specific interface",
	Long: `Ping a host through one network interface.

Examples:
  netdiag iface-ping --iface wlan0
  netdiag iface-ping 8.8.8.8 --iface eth0`,
	Args: cobra.MaximumNArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindInterfacePing, Target: targetArg(args), Interface: pingIface}, nil
	}),
}

var mtuCmd = &cobra.Command{
	Use:   "mtu [target]",
	Short: "Estimate the path MTU",
	Long: `Estimate the path MTU by sending don't-fragment pings of decreasing
size until one passes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindMTU, Target: targetArg(args)}, nil
	}),
}

func init() {
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 4, "Number of echo requests")
	ifacePingCmd.Flags().StringVarP(&pingIface, "iface", "i", "", "Interface to ping through")
	_ = ifacePingCmd.MarkFlagRequired("iface")

	addProbeFlags(pingCmd, gatewayCmd, latencyCmd, ifacePingCmd, mtuCmd)
}
