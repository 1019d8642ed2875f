package probes

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
)

// ICMPOverhead is the IPv4 plus ICMP header size added to a ping payload.
const ICMPOverhead = 28

// MTU estimates the path MTU to target with a linear search of
// don't-fragment pings. The payload starts at mtu_start and drops by
// mtu_step after each rejected size, never below mtu_floor.
func (p *Prober) MTU(ctx context.Context, target string) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindMTU, Target: p.target(target)}}
	if !p.require(&res, "ping") {
		return res
	}

	// failed is the first ping that neither replied nor reported fragmentation.
	var failed *model.ProbeOutput
	size, attempts := SearchMTU(p.cfg.MTUStart, p.cfg.MTUStep, p.cfg.MTUFloor, func(size int) bool {
		out := p.pinger(ctx, res.Invocation.Target, size)
		res.Outputs = append(res.Outputs, out)
		if ctx.Err() != nil {
			return false
		}
		text := out.Text + out.Stderr
		if extract.FragmentationNeeded(text) {
			return true
		}
		if !out.Started() || !extract.EchoReply(text) {
			failed = &out
		}
		return false
	})

	if ctx.Err() != nil {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeInconclusive, Note: "interrupted; search did not finish"}
		return res
	}
	if failed != nil {
		note := fmt.Sprintf("ping at %d bytes gave no reply (%s", size, failed.Status)
		if failed.Started() {
			note += fmt.Sprintf(", exit code %d", failed.ExitCode)
		}
		note += ")"
		msg := strings.TrimSpace(failed.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(failed.Text)
		}
		if msg != "" {
			note += ": " + msg
		}
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: note}
		return res
	}

	mtu := size + ICMPOverhead
	res.Metrics.MTUBytes = model.Int(mtu)
	res.AddDetail("Attempts", "%s", formatAttempts(attempts))
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	return res
}

// SearchMTU walks payload sizes downward from start until tooBig returns
// false or the floor is reached. It returns the final size and every size
// tested.
func SearchMTU(start, step, floor int, tooBig func(size int) bool) (int, []int) {
	size := start
	var tried []int
	for size > floor {
		tried = append(tried, size)
		if !tooBig(size) {
			break
		}
		size -= step
		if size < floor {
			size = floor
		}
	}
	return size, tried
}

func formatAttempts(sizes []int) string {
	if len(sizes) == 0 {
		return "none"
	}
	parts := make([]string, len(sizes))
	for i, s := range sizes {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, ", ")
}
