package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/runner"
)

const menuQuit = "quit"

// menuItem is one menu entry and the inputs it asks for.
type menuItem struct {
	label  string
	kind   model.ProbeKind
	target string // prompt for a target when set
	iface  bool
	count  bool
	ports  bool
	port   bool
	url    bool
}

var menuItems = []menuItem{
	{label: "Ping with custom count", kind: model.KindPing, target: "Host to ping", count: true},
	{label: "Ping default gateway", kind: model.KindGatewayPing},
	{label: "Latency and jitter", kind: model.KindLatency, target: "Host to measure"},
	{label: "Ping through an interface", kind: model.KindInterfacePing, target: "Host to ping", iface: true},
	{label: "Speed test", kind: model.KindSpeedtest},
	{label: "HTTP download test", kind: model.KindDownload, url: true},
	{label: "Port scan", kind: model.KindPortScan, target: "Host to scan", ports: true},
	{label: "MTU discovery", kind: model.KindMTU, target: "Host to probe"},
	{label: "DNS check", kind: model.KindDNSCheck, target: "Name to resolve"},
	{label: "DNS port 53 block check", kind: model.KindDNSBlock},
	{label: "Captive portal check", kind: model.KindCaptive},
	{label: "Traceroute", kind: model.KindTraceroute, target: "Host to trace"},
	{label: "MTR report", kind: model.KindMTR, target: "Host to trace"},
	{label: "Discover local hosts", kind: model.KindDiscover, iface: true},
	{label: "Wi-Fi survey", kind: model.KindWiFi},
	{label: "Netcat port test", kind: model.KindNetcat, target: "Host to test", port: true},
	{label: "Whois lookup", kind: model.KindWhois, target: "Domain or IP"},
	{label: "Active interfaces", kind: model.KindInterfaces},
	{label: "Addresses and routes", kind: model.KindRoutes},
	{label: "Multiple default gateways", kind: model.KindGateways},
	{label: "Public IP", kind: model.KindPublicIP},
	{label: "DHCP log", kind: model.KindDHCP},
}

// interfaceNames lists the interfaces offered by the menu.
var interfaceNames = func() []string {
	return probes.New(runner.New(), cfg).InterfaceNames(context.Background())
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive diagnosis menu",
	Long: `Pick probes from a menu until you quit. After each diagnosis you are
asked whether to save it.`,
	Args: cobra.NoArgs,
	RunE: runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

func runMenu(cmd *cobra.Command, args []string) error {
	options := make([]huh.Option[string], 0, len(menuItems)+2)
	for i, item := range menuItems {
		options = append(options, huh.NewOption(item.label, strconv.Itoa(i)))
	}
	options = append(options,
		huh.NewOption("Prognosis of the last record", "prognosis"),
		huh.NewOption("Quit", menuQuit),
	)

	for {
		var choice string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("netdiag").
					Description("Choose a diagnosis").
					Options(options...).
					Height(14).
					Value(&choice),
			),
		)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}

		switch choice {
		case menuQuit:
			return nil
		case "prognosis":
			prognosisLast = 0
			if err := runPrognosis(cmd, nil); err != nil {
				newPrinter().Error("%v", err)
			}
			continue
		}

		i, _ := strconv.Atoi(choice)
		inv, err := askInvocation(menuItems[i])
		if err != nil {
			if !errors.Is(err, huh.ErrUserAborted) {
				newPrinter().Error("%v", err)
			}
			continue
		}

		jsonOutput = false
		res, r, err := runAndPrint(inv)
		if err != nil {
			newPrinter().Error("%v", err)
			continue
		}
		if askSave() {
			if err := saveReport(r, res); err != nil {
				newPrinter().Error("%v", err)
			}
		}
	}
}

// askInvocation prompts for the inputs item needs.
func askInvocation(item menuItem) (model.ProbeInvocation, error) {
	inv := model.ProbeInvocation{Kind: item.kind}

	var (
		count = strconv.Itoa(cfg.PingCount)
		ports string
		port  string
	)

	var fields []huh.Field
	if item.target != "" {
		fields = append(fields, huh.NewInput().
			Title(item.target).
			Placeholder(cfg.DefaultTarget+" (default)").
			Value(&inv.Target))
	}
	if item.count {
		fields = append(fields, huh.NewInput().
			Title("Count").
			Value(&count).
			Validate(positiveInt))
	}
	if item.ports {
		fields = append(fields, huh.NewInput().
			Title("Ports").
			Description("Comma separated ports or lo-hi ranges; empty for common ports").
			Placeholder("22,80,443,8000-8100").
			Value(&ports).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return nil
				}
				_, err := probes.ParsePorts(s)
				return err
			}))
	}
	if item.port {
		fields = append(fields, huh.NewInput().
			Title("Port").
			Value(&port).
			Validate(positiveInt))
		fields = append(fields, huh.NewSelect[string]().
			Title("Protocol").
			Options(huh.NewOptions("tcp", "udp")...).
			Value(&inv.Protocol))
	}
	if item.url {
		fields = append(fields, huh.NewInput().
			Title("URL").
			Description("Empty for the configured test file").
			Value(&inv.URL))
	}
	// With no interface to offer, the probe itself reports no data.
	if item.iface {
		if names := interfaceNames(); len(names) > 0 {
			fields = append(fields, huh.NewSelect[string]().
				Title("Interface").
				Options(huh.NewOptions(names...)...).
				Value(&inv.Interface))
		}
	}

	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return inv, err
		}
	}

	inv.Target = strings.TrimSpace(inv.Target)
	if item.count {
		inv.Count, _ = strconv.Atoi(count)
	}
	if item.ports && strings.TrimSpace(ports) != "" {
		inv.Ports, _ = probes.ParsePorts(ports)
	}
	if item.port {
		p, _ := strconv.Atoi(port)
		inv.Ports = []int{p}
	}
	return inv, nil
}

func askSave() bool {
	var save bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this diagnosis?").
				Value(&save),
		),
	).Run()
	return err == nil && save
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}
