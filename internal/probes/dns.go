package probes

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
	"github.com/user/netdiag/internal/util"
)

// dnsAttemptTimeout bounds each port 53 reachability attempt.
const dnsAttemptTimeout = 2 * time.Second

// Resolution is one timed name lookup.
type Resolution struct {
	Server     string
	Protocol   string
	ResolvedIP string
	Latency    time.Duration
	Err        error
}

// DNSCheck resolves name with dig and host when installed, then times a
// lookup against the configured resolver over UDP and over DoH.
func (p *Prober) DNSCheck(ctx context.Context, name string) model.ProbeResult {
	if name == "" {
		name = p.cfg.DNSLookupName
	}
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindDNSCheck, Target: name}}

	for _, cmd := range []runner.Command{
		runner.Cmd("dig", name, "+short"),
		runner.Cmd("host", name),
	} {
		if !p.exec.Available(cmd.Name) {
			res.AddDetail(cmd.Name, "not installed")
			continue
		}
		res.Outputs = append(res.Outputs, p.exec.RunCaptured(ctx, cmd))
	}

	lookups := []Resolution{p.MeasureUDP(ctx, p.cfg.DNSResolver, name)}
	if p.cfg.DoHURL != "" {
		lookups = append(lookups, p.MeasureDoH(ctx, p.cfg.DoHURL, name))
	}

	failed := 0
	for _, r := range lookups {
		key := fmt.Sprintf("%s (%s)", r.Server, r.Protocol)
		if r.Err != nil {
			failed++
			res.AddDetail(key, "failed: %v", r.Err)
			continue
		}
		res.AddDetail(key, "%s in %d ms", r.ResolvedIP, r.Latency.Milliseconds())
	}

	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	if failed == len(lookups) {
		res.Diagnosis.Issues = append(res.Diagnosis.Issues, model.Issue{Severity: model.SeverityBad, Label: "name resolution failed"})
		res.Diagnosis.Causes = append(res.Diagnosis.Causes, "resolver unreachable or DNS traffic blocked")
		res.Diagnosis.Remedies = append(res.Diagnosis.Remedies, "run the port 53 block check and try another resolver")
	}
	res.Diagnosis.Label = classify.Aggregate(res.Diagnosis.Issues)
	return res
}

// MeasureUDP resolves name through resolverIP on UDP 53 and times it.
func (p *Prober) MeasureUDP(ctx context.Context, resolverIP, name string) Resolution {
	r := Resolution{Server: resolverIP, Protocol: "udp"}
	resolverAddr := net.JoinHostPort(resolverIP, strconv.Itoa(p.dnsPort))
	start := time.Now()

	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			return p.dial(ctx, "udp", resolverAddr)
		},
	}

	ctx, cancel := context.WithTimeout(ctx, dnsAttemptTimeout)
	defer cancel()

	ips, err := resolver.LookupHost(ctx, name)
	r.Latency = time.Since(start)
	if err != nil {
		r.Err = err
		return r
	}
	if len(ips) > 0 {
		r.ResolvedIP = ips[0]
	}
	return r
}

// MeasureDoH performs a DNS-over-HTTPS JSON query and times it.
func (p *Prober) MeasureDoH(ctx context.Context, endpoint, name string) Resolution {
	r := Resolution{Server: endpoint, Protocol: "doh"}
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		r.Server = u.Host
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?name="+url.QueryEscape(name)+"&type=A", nil)
	if err != nil {
		r.Err = err
		return r
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := p.client.Do(req)
	if err != nil {
		r.Err = err
		return r
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.Err = fmt.Errorf("bad status: %d", resp.StatusCode)
		return r
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	r.Latency = time.Since(start)
	if err != nil {
		r.Err = err
		return r
	}
	if !gjson.ValidBytes(body) {
		r.Err = fmt.Errorf("invalid DoH response")
		return r
	}

	// First A record
	r.ResolvedIP = gjson.GetBytes(body, `Answer.#(type==1).data`).String()
	if r.ResolvedIP == "" {
		r.Err = fmt.Errorf("no A record for %s", name)
	}
	return r
}

// DNSBlock checks whether TCP and UDP port 53 on the resolver are reachable.
// Each transport is judged on its own.
func (p *Prober) DNSBlock(ctx context.Context) model.ProbeResult {
	resolver := p.cfg.DNSResolver
	res := model.ProbeResult{Invocation: model.ProbeInvocation{
		Kind:    model.KindDNSBlock,
		Target:  resolver,
		Ports:   []int{p.dnsPort},
		Timeout: dnsAttemptTimeout,
	}}
	start := time.Now()
	addr := net.JoinHostPort(resolver, strconv.Itoa(p.dnsPort))

	var state model.DNSPortState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		state.TCP = p.reachable(gctx, "tcp", addr)
		return nil
	})
	g.Go(func() error {
		state.UDP = p.reachable(gctx, "udp", addr)
		return nil
	})
	_ = g.Wait()

	res.Metrics.DNSPort = &state

	var b strings.Builder
	for _, t := range []struct {
		proto string
		ok    bool
	}{{"TCP", state.TCP}, {"UDP", state.UDP}} {
		verdict := "reachable"
		if !t.ok {
			verdict = "blocked"
			res.Diagnosis.Issues = append(res.Diagnosis.Issues, model.Issue{
				Severity: model.SeverityWarn,
				Label:    fmt.Sprintf("port 53 %s blocked", t.proto),
			})
		}
		fmt.Fprintf(&b, "Port 53 %s: %s\n", t.proto, verdict)
	}

	res.Outputs = append(res.Outputs, model.ProbeOutput{
		Command:  fmt.Sprintf("connect %s (tcp, udp)", addr),
		Text:     b.String(),
		Stdout:   b.String(),
		Status:   model.StatusSuccess,
		Duration: time.Since(start),
	})
	if len(res.Diagnosis.Issues) > 0 {
		res.Diagnosis.Causes = []string{"firewall or provider filtering DNS to outside resolvers"}
		res.Diagnosis.Remedies = []string{"use the DNS server handed out by DHCP or check the firewall rules"}
	}
	res.Diagnosis.Outcome = model.OutcomeOK
	res.Diagnosis.Label = classify.Aggregate(res.Diagnosis.Issues)
	return res
}

func (p *Prober) reachable(ctx context.Context, network, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, dnsAttemptTimeout)
	defer cancel()

	conn, err := p.dial(ctx, network, addr)
	if err != nil {
		util.Debug("%s %s unreachable: %v", network, addr, err)
		return false
	}
	conn.Close()
	return true
}
