package probes

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
)

const (
	maxHops         = 30
	mtrReportCycles = 10
)

// Traceroute streams a traceroute to target and parses its hops.
func (p *Prober) Traceroute(ctx context.Context, target string) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindTraceroute, Target: p.target(target)}}
	if !p.require(&res, "traceroute") {
		return res
	}

	// -n = numeric output (no DNS), -q 1 = 1 probe per hop, -w = wait time
	cmd := runner.Cmd("traceroute", "-n", "-q", "1", "-w", "2", "-m", strconv.Itoa(maxHops), res.Invocation.Target)
	out := p.stream(ctx, cmd, 0)
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}

	res.Hops = extract.Traceroute(out.Text)
	res.AddDetail("Hops", "%d", len(res.Hops))
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK, Note: statusNote(out)}
	if len(res.Hops) == 0 {
		res.Diagnosis.Outcome = model.OutcomeParseFailure
		res.Diagnosis.Note = "no hop lines in traceroute output"
		return res
	}

	lost := 0
	for _, h := range res.Hops {
		if h.Lost {
			lost++
		}
	}
	if lost > 0 {
		res.AddDetail("Silent hops", "%d", lost)
	}
	return res
}

// MTR streams an mtr report to target.
func (p *Prober) MTR(ctx context.Context, target string) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindMTR, Target: p.target(target), Count: mtrReportCycles}}
	if !p.require(&res, "mtr") {
		res.Diagnosis.Remedies = []string{"install mtr (sudo apt install mtr)"}
		return res
	}

	cmd := runner.Cmd("mtr", "--report", "--report-cycles", strconv.Itoa(mtrReportCycles), res.Invocation.Target)
	out := p.stream(ctx, cmd, 0)
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK, Note: statusNote(out)}
	return res
}

// Discover runs netdiscover on iface for at most timeout and keeps the host
// rows it printed. An empty ipRange scans the interface's default ranges.
func (p *Prober) Discover(ctx context.Context, iface, ipRange string, timeout time.Duration) model.ProbeResult {
	if timeout <= 0 {
		timeout = p.cfg.DiscoverTimeout
	}
	res := model.ProbeResult{Invocation: model.ProbeInvocation{
		Kind:      model.KindDiscover,
		Interface: iface,
		Range:     ipRange,
		Timeout:   timeout,
	}}
	if iface == "" {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: "no interface selected"}
		return res
	}
	if !p.require(&res, "netdiscover") {
		return res
	}

	args := []string{"-i", iface}
	if ipRange != "" {
		args = append(args, "-r", ipRange)
	}
	args = append(args, "-P", "-N")
	cmd := runner.Cmd("netdiscover", args...)
	if os.Geteuid() != 0 && p.exec.Available("sudo") {
		cmd = runner.Cmd("sudo", append([]string{"-n", "netdiscover"}, args...)...)
	}

	onLine := p.OnLine
	out := p.exec.RunStreamed(ctx, cmd, func(line string) {
		if onLine != nil && extract.IsDiscoveryLine(line) {
			onLine(line)
		}
	}, timeout)
	res.Outputs = append(res.Outputs, out)
	if strings.Contains(out.Stderr, "password is required") {
		res.Diagnosis = model.Diagnosis{
			Outcome: model.OutcomeNoData,
			Note:    "netdiscover needs root; run netdiag as root or refresh sudo credentials: " + strings.TrimSpace(out.Stderr),
		}
		return res
	}
	if !usable(&res, out) {
		return res
	}

	res.Lines = extract.Discoveries(out.Text)
	res.AddDetail("Hosts", "%d", len(res.Lines))
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK, Note: statusNote(out)}
	return res
}
