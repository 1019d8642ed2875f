package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/probes"
)

var (
	scanPorts       string
	discoverIface   string
	discoverRange   string
	discoverTimeout time.Duration
	netcatUDP       bool
)

var portsCmd = &cobra.Command{
	Use:   "ports [host]",
	Short: "Scan TCP ports on a host",
	Long: `Scan a host for open TCP ports.

Ports may be a list or ranges. Without --ports a set of common service
ports is scanned.

Examples:
  netdiag ports 192.168.1.1
  netdiag ports example.com --ports 22,80,443,8000-8100`,
	Args: cobra.MaximumNArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		var ports []int
		if scanPorts != "" {
			var err error
			if ports, err = probes.ParsePorts(scanPorts); err != nil {
				return model.ProbeInvocation{}, err
			}
		}
		return model.ProbeInvocation{Kind: model.KindPortScan, Target: targetArg(args), Ports: ports}, nil
	}),
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover hosts on the local network",
	Long: `Run netdiscover on an interface and list the hosts it finds.

The scan stops after --timeout or on Ctrl+C and keeps what it found.`,
	Args: cobra.NoArgs,
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{
			Kind:      model.KindDiscover,
			Interface: discoverIface,
			Range:     discoverRange,
			Timeout:   discoverTimeout,
		}, nil
	}),
}

var wifiCmd = &cobra.Command{
	Use:   "wifi",
	Short: "List nearby Wi-Fi networks",
	Args:  cobra.NoArgs,
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindWiFi}, nil
	}),
}

var netcatCmd = &cobra.Command{
	Use:   "netcat <host> <port>",
	Short: "Test a single port with netcat",
	Args:  cobra.ExactArgs(2),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		port, err := strconv.Atoi(args[1])
		if err != nil || port < 1 || port > 65535 {
			return model.ProbeInvocation{}, fmt.Errorf("invalid port %q", args[1])
		}
		proto := "tcp"
		if netcatUDP {
			proto = "udp"
		}
		return model.ProbeInvocation{Kind: model.KindNetcat, Target: args[0], Ports: []int{port}, Protocol: proto}, nil
	}),
}

var whoisCmd = &cobra.Command{
	Use:   "whois <domain|ip>",
	Short: "Look up registration data",
	Args:  cobra.ExactArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindWhois, Target: args[0]}, nil
	}),
}

func init() {
	portsCmd.Flags().StringVarP(&scanPorts, "ports", "p", "", "Ports to scan, e.g. 22,80,8000-8100")
	discoverCmd.Flags().StringVarP(&discoverIface, "iface", "i", "", "Interface to scan on")
	discoverCmd.Flags().StringVarP(&discoverRange, "range", "r", "", "Address range, e.g. 192.168.1.0/24")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 0, "Stop after this long (default from config)")
	_ = discoverCmd.MarkFlagRequired("iface")
	netcatCmd.Flags().BoolVarP(&netcatUDP, "udp", "u", false, "Use UDP instead of TCP")

	addProbeFlags(portsCmd, discoverCmd, wifiCmd, netcatCmd, whoisCmd)
}
