package probes

import (
	"context"
	"strconv"

	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
)

// interfacePingCount is the packet count for interface-scoped pings.
const interfacePingCount = 5

func pingCmd(target string, count int, extra ...string) runner.Command {
	args := append([]string{}, extra...)
	args = append(args, "-c", strconv.Itoa(count), target)
	return runner.Cmd("ping", args...)
}

// Ping sends count echo requests to target, streaming replies as they arrive.
func (p *Prober) Ping(ctx context.Context, target string, count int) model.ProbeResult {
	if count <= 0 {
		count = p.cfg.PingCount
	}
	inv := model.ProbeInvocation{Kind: model.KindPing, Target: p.target(target), Count: count}
	res := model.ProbeResult{Invocation: inv}
	if !p.require(&res, "ping") {
		return res
	}

	out := p.stream(ctx, pingCmd(inv.Target, count), 0)
	res.Outputs = append(res.Outputs, out)
	p.finishPing(&res, out)
	return res
}

// InterfacePing pings target through a specific interface.
func (p *Prober) InterfacePing(ctx context.Context, iface, target string) model.ProbeResult {
	inv := model.ProbeInvocation{Kind: model.KindInterfacePing, Target: p.target(target), Interface: iface, Count: interfacePingCount}
	res := model.ProbeResult{Invocation: inv}
	if iface == "" {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: "no interface selected"}
		return res
	}
	if !p.require(&res, "ping") {
		return res
	}

	out := p.stream(ctx, pingCmd(inv.Target, interfacePingCount, "-I", iface), 0)
	res.Outputs = append(res.Outputs, out)
	res.AddDetail("Interface", "%s", iface)
	p.finishPing(&res, out)
	return res
}

// Latency measures latency, jitter and loss to target with the latency rules.
func (p *Prober) Latency(ctx context.Context, target string) model.ProbeResult {
	inv := model.ProbeInvocation{Kind: model.KindLatency, Target: p.target(target), Count: p.cfg.PingCount}
	res := model.ProbeResult{Invocation: inv}
	if !p.require(&res, "ping") {
		return res
	}

	out := p.exec.RunCaptured(ctx, pingCmd(inv.Target, inv.Count))
	res.Outputs = append(res.Outputs, out)
	p.finishPing(&res, out)
	return res
}

// GatewayPing finds the default gateway and pings it with the gateway rules.
func (p *Prober) GatewayPing(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindGatewayPing, Count: p.cfg.PingCount}}
	if !p.require(&res, "ip", "ping") {
		return res
	}

	routes := p.exec.RunCaptured(ctx, runner.Cmd("ip", "r"))
	res.Outputs = append(res.Outputs, routes)
	gateway, ok := extract.Gateway(routes.Text)
	if !ok {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: "default gateway not found"}
		return res
	}
	res.Invocation.Target = gateway
	res.AddDetail("Gateway", "%s", gateway)

	out := p.exec.RunCaptured(ctx, pingCmd(gateway, res.Invocation.Count))
	res.Outputs = append(res.Outputs, out)
	p.finishPing(&res, out)
	return res
}

// finishPing extracts and classifies ping-family output.
func (p *Prober) finishPing(res *model.ProbeResult, out model.ProbeOutput) {
	if !usable(res, out) {
		return
	}

	pm := extract.Ping(out.Text)
	res.Metrics = pm.Metrics
	judge(res)

	switch {
	case pm.Inconclusive():
		res.Diagnosis.Outcome = model.OutcomeInconclusive
		res.Diagnosis.Note = "no latency samples in output"
	case out.Terminated():
		res.Diagnosis.Note = statusNote(out)
	}
}

// pingDF sends one don't-fragment echo request with the given payload size.
func (p *Prober) pingDF(ctx context.Context, target string, size int) model.ProbeOutput {
	return p.exec.RunCaptured(ctx, runner.Cmd("ping", "-c", "1", "-s", strconv.Itoa(size), "-M", "do", target))
}
