// Package probes runs network probes and turns their output into diagnoses.
package probes

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
	"github.com/user/netdiag/internal/util"
)

// IssueToolMissing is the issue reported when a probe's command is absent.
const IssueToolMissing = "tool not installed"

// DialFunc opens a connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Prober runs probes one at a time against a command executor.
type Prober struct {
	exec   runner.Executor
	cfg    *util.Config
	dial   DialFunc
	client *http.Client

	// Overridable for tests.
	dnsPort int
	pinger  func(ctx context.Context, target string, size int) model.ProbeOutput

	// OnLine receives each line of streamed probes as it arrives.
	OnLine func(string)
}

// New creates a prober.
func New(exec runner.Executor, cfg *util.Config) *Prober {
	if cfg == nil {
		cfg = util.DefaultConfig()
	}
	d := &net.Dialer{}
	p := &Prober{
		exec:    exec,
		cfg:     cfg,
		dial:    d.DialContext,
		client:  &http.Client{Timeout: 10 * time.Second},
		dnsPort: 53,
	}
	p.pinger = p.pingDF
	return p
}

// Config returns the configuration the prober was built with.
func (p *Prober) Config() *util.Config {
	return p.cfg
}

// Run executes the probe described by inv.
func (p *Prober) Run(ctx context.Context, inv model.ProbeInvocation) model.ProbeResult {
	util.Debug("Running probe %s target=%q", inv.Kind, inv.Target)

	switch inv.Kind {
	case model.KindPing:
		return p.Ping(ctx, inv.Target, inv.Count)
	case model.KindGatewayPing:
		return p.GatewayPing(ctx)
	case model.KindInterfacePing:
		return p.InterfacePing(ctx, inv.Interface, inv.Target)
	case model.KindLatency:
		return p.Latency(ctx, inv.Target)
	case model.KindSpeedtest:
		return p.Speedtest(ctx)
	case model.KindDownload:
		return p.Download(ctx, inv.URL)
	case model.KindPortScan:
		return p.PortScan(ctx, inv.Target, inv.Ports)
	case model.KindTraceroute:
		return p.Traceroute(ctx, inv.Target)
	case model.KindMTR:
		return p.MTR(ctx, inv.Target)
	case model.KindMTU:
		return p.MTU(ctx, inv.Target)
	case model.KindDNSCheck:
		return p.DNSCheck(ctx, inv.Target)
	case model.KindDNSBlock:
		return p.DNSBlock(ctx)
	case model.KindCaptive:
		return p.Captive(ctx)
	case model.KindWiFi:
		return p.WiFi(ctx)
	case model.KindNetcat:
		port := 0
		if len(inv.Ports) > 0 {
			port = inv.Ports[0]
		}
		return p.Netcat(ctx, inv.Target, port, inv.Protocol)
	case model.KindWhois:
		return p.Whois(ctx, inv.Target)
	case model.KindDiscover:
		return p.Discover(ctx, inv.Interface, inv.Range, inv.Timeout)
	case model.KindInterfaces:
		return p.Interfaces(ctx)
	case model.KindRoutes:
		return p.Routes(ctx)
	case model.KindGateways:
		return p.Gateways(ctx)
	case model.KindPublicIP:
		return p.PublicIP(ctx)
	case model.KindDHCP:
		return p.DHCP(ctx)
	}

	res := model.ProbeResult{Invocation: inv}
	res.Diagnosis = model.Diagnosis{
		Outcome: model.OutcomeNoData,
		Note:    fmt.Sprintf("unknown probe kind %q", inv.Kind),
	}
	return res
}

// require reports whether every named command is available. When one is
// missing it fills res with the tool-missing diagnosis.
func (p *Prober) require(res *model.ProbeResult, names ...string) bool {
	for _, name := range names {
		if p.exec.Available(name) {
			continue
		}
		util.Warn("Probe %s skipped: %s not found on PATH", res.Invocation.Kind, name)
		res.Metrics = model.MetricSet{}
		res.Diagnosis = model.Diagnosis{
			Outcome: model.OutcomeToolMissing,
			Issues:  []model.Issue{{Severity: model.SeverityBad, Label: IssueToolMissing}},
			Note:    fmt.Sprintf("%s is not installed", name),
		}
		return false
	}
	return true
}

// usable reports whether out carries anything to extract from. When it
// does not, res gets the no-data diagnosis.
func usable(res *model.ProbeResult, out model.ProbeOutput) bool {
	if out.Started() && strings.TrimSpace(out.Text) != "" {
		return true
	}
	note := fmt.Sprintf("%s produced no output (%s", out.Command, out.Status)
	if out.Started() {
		note += fmt.Sprintf(", exit code %d", out.ExitCode)
	}
	note += ")"
	if msg := strings.TrimSpace(out.Stderr); msg != "" {
		note += ": " + msg
	}
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: note}
	return false
}

// judge classifies res.Metrics with the table that matches the probe kind.
func judge(res *model.ProbeResult) {
	family, ok := classify.FamilyFor(res.Invocation.Kind)
	if !ok {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
		return
	}
	res.Diagnosis = classify.Classify(family, res.Metrics)
}

// statusNote describes an early stop.
func statusNote(out model.ProbeOutput) string {
	switch out.Status {
	case model.StatusTimedOut:
		return fmt.Sprintf("stopped after %s timeout; output is partial", out.Duration.Round(time.Second))
	case model.StatusCancelled:
		return "interrupted; output is partial"
	}
	return ""
}

func (p *Prober) target(t string) string {
	if t == "" {
		return p.cfg.DefaultTarget
	}
	return t
}

func (p *Prober) stream(ctx context.Context, cmd runner.Command, timeout time.Duration) model.ProbeOutput {
	return p.exec.RunStreamed(ctx, cmd, p.OnLine, timeout)
}
