package main

import (
	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
)

var (
	dnsCmd = &cobra.Command{
		Use:   "dns [name]",
		Short: "Resolve a name and time the configured resolver",
		Args:  cobra.MaximumNArgs(1),
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindDNSCheck, Target: targetArg(args)}, nil
		}),
	}

	dnsBlockCmd = &cobra.Command{
		Use:   "dns-block",
		Short: "Check whether port 53 is blocked",
		Args:  cobra.NoArgs,
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindDNSBlock}, nil
		}),
	}

	captiveCmd = &cobra.Command{
		Use:   "captive",
		Short: "Detect a captive portal",
		Args:  cobra.NoArgs,
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindCaptive}, nil
		}),
	}

	publicIPCmd = &cobra.Command{
		Use:   "public-ip",
		Short: "Show the public IP and its network owner",
		Args:  cobra.NoArgs,
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindPublicIP}, nil
		}),
	}

	interfacesCmd = &cobra.Command{
		Use:   "interfaces",
		Short: "List active network interfaces",
		Args:  cobra.NoArgs,
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindInterfaces}, nil
		}),
	}

	routesCmd = &cobra.Command{
		Use:   "routes",
		Short: "Show addresses and routes",
		Args:  cobra.NoArgs,
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindRoutes}, nil
		}),
	}

	gatewaysCmd = &cobra.Command{
		Use:   "gateways",
		Short: "Check for multiple default gateways",
		Args:  cobra.NoArgs,
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindGateways}, nil
		}),
	}

	dhcpCmd = &cobra.Command{
		Use:   "dhcp",
		Short: "Show recent DHCP log entries",
		Args:  cobra.NoArgs,
		RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
			return model.ProbeInvocation{Kind: model.KindDHCP}, nil
		}),
	}
)

func init() {
	addProbeFlags(dnsCmd, dnsBlockCmd, captiveCmd, publicIPCmd, interfacesCmd, routesCmd, gatewaysCmd, dhcpCmd)
}
