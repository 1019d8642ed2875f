package probes

import (
	"context"
	"strconv"
	"strings"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
)

// Interfaces lists physical interfaces from ip -o link show.
func (p *Prober) Interfaces(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindInterfaces}}
	if !p.require(&res, "ip") {
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("ip", "-o", "link", "show"))
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}
	res.Lines = extract.Interfaces(out.Text)
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	if len(res.Lines) == 0 {
		res.Diagnosis.Note = "no active physical interface"
	}
	return res
}

// InterfaceNames returns the selectable interfaces, or nil when ip is absent.
func (p *Prober) InterfaceNames(ctx context.Context) []string {
	return p.Interfaces(ctx).Lines
}

// Routes dumps addresses and the routing table.
func (p *Prober) Routes(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindRoutes}}
	if !p.require(&res, "ip") {
		return res
	}

	addrs := p.exec.RunCaptured(ctx, runner.Cmd("ip", "a"))
	routes := p.exec.RunCaptured(ctx, runner.Cmd("ip", "r"))
	res.Outputs = append(res.Outputs, addrs, routes)
	if !usable(&res, addrs) {
		return res
	}
	res.Lines = extract.DefaultRoutes(routes.Text)
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	return res
}

// Gateways checks that exactly one default route exists.
func (p *Prober) Gateways(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindGateways}}
	if !p.require(&res, "ip") {
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("ip", "r"))
	res.Outputs = append(res.Outputs, out)
	if !out.Started() {
		usable(&res, out)
		return res
	}

	res.Lines = extract.DefaultRoutes(out.Text)
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	switch n := len(res.Lines); {
	case n == 0:
		res.Diagnosis.Outcome = model.OutcomeNoData
		res.Diagnosis.Note = "no default gateway"
		return res
	case n == 1:
		res.AddDetail("Verdict", "single default gateway")
	default:
		res.AddDetail("Verdict", "multiple default gateways detected")
		res.Diagnosis.Issues = []model.Issue{{Severity: model.SeverityWarn, Label: "multiple default gateways"}}
		res.Diagnosis.Causes = []string{"more than one uplink or a stale DHCP lease"}
		res.Diagnosis.Remedies = []string{"check route metrics or disconnect the unused interface"}
	}
	res.Diagnosis.Label = classify.Aggregate(res.Diagnosis.Issues)
	return res
}

// DHCP shows DHCP journal entries from the last ten minutes.
func (p *Prober) DHCP(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindDHCP}}
	if !p.require(&res, "journalctl") {
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("journalctl", "-b", "--since", "10 minutes ago", "-g", "DHCP"))
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	return res
}

// WiFi lists visible access points with nmcli.
func (p *Prober) WiFi(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindWiFi}}
	if !p.require(&res, "nmcli") {
		res.Diagnosis.Remedies = []string{"install NetworkManager to use the Wi-Fi survey"}
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("nmcli", "-f", "SSID,BSSID,SIGNAL,SECURITY,CHAN", "device", "wifi", "list"))
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}

	res.AccessPoints = extract.WiFi(out.Text)
	if len(res.AccessPoints) == 0 {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: "no Wi-Fi networks found"}
		return res
	}
	res.AddDetail("Networks", "%d", len(res.AccessPoints))
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	return res
}

// Netcat checks whether host:port accepts a tcp or udp connection.
func (p *Prober) Netcat(ctx context.Context, host string, port int, proto string) model.ProbeResult {
	proto = strings.ToLower(proto)
	if proto != "udp" {
		proto = "tcp"
	}
	res := model.ProbeResult{Invocation: model.ProbeInvocation{
		Kind:     model.KindNetcat,
		Target:   p.target(host),
		Ports:    []int{port},
		Protocol: proto,
	}}
	if port <= 0 || port > 65535 {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: "invalid port"}
		return res
	}
	if !p.require(&res, "nc") {
		res.Diagnosis.Remedies = []string{"install netcat (sudo apt install netcat)"}
		return res
	}

	args := []string{"-zv", "-w", "3"}
	if proto == "udp" {
		args = append(args, "-u")
	}
	args = append(args, res.Invocation.Target, strconv.Itoa(port))
	out := p.exec.RunCaptured(ctx, runner.Cmd("nc", args...))
	res.Outputs = append(res.Outputs, out)
	// nc -v reports on stderr, so an empty stdout is normal here
	if !out.Started() || out.Terminated() {
		usable(&res, model.ProbeOutput{Command: out.Command, Status: out.Status, ExitCode: out.ExitCode, Stderr: out.Stderr})
		return res
	}

	open := out.ExitCode == 0
	res.Metrics.PortStates = map[int]bool{port: open}
	res.AddDetail("Port", "%d (%s)", port, strings.ToUpper(proto))
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	if !open {
		res.Diagnosis.Issues = []model.Issue{{Severity: model.SeverityWarn, Label: "connection refused or filtered"}}
	}
	res.Diagnosis.Label = classify.Aggregate(res.Diagnosis.Issues)
	return res
}

// Whois looks up registration data for an IP or domain.
func (p *Prober) Whois(ctx context.Context, target string) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindWhois, Target: p.target(target)}}
	if !p.require(&res, "whois") {
		res.Diagnosis.Remedies = []string{"install whois (sudo apt install whois)"}
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("whois", res.Invocation.Target))
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	return res
}
