package probes

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
)

// asnLookupURL is queried for the owner of the public address.
var asnLookupURL = "http://ip-api.com/json/%s?fields=query,as,isp,org,country,city"

// ASNInfo holds ASN and ISP information.
type ASNInfo struct {
	IP      string
	ASN     string
	ISP     string
	Org     string
	Country string
	City    string
}

// Captive fetches the generate_204 endpoint headers and flags a possible
// captive portal when the expected status is missing.
func (p *Prober) Captive(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindCaptive, URL: p.cfg.CaptiveURL}}
	if !p.require(&res, "curl") {
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("curl", "-s", "-I", "--max-time", "10", p.cfg.CaptiveURL))
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}

	detected := !extract.CaptivePortal(out.Text)
	res.Metrics.CaptivePortal = model.Bool(detected)
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	if detected {
		res.Diagnosis.Issues = []model.Issue{{Severity: model.SeverityWarn, Label: "possible redirection or block"}}
		res.Diagnosis.Causes = []string{"captive portal, proxy or filtering on the path"}
		res.Diagnosis.Remedies = []string{"open a browser to complete the portal login or check the proxy settings"}
		res.AddDetail("Verdict", "possible redirection or block")
	} else {
		res.AddDetail("Verdict", "no captive portal")
	}
	res.Diagnosis.Label = classify.Aggregate(res.Diagnosis.Issues)
	return res
}

// PublicIP asks several providers for the public address and reports the
// most common answer with its ASN details.
func (p *Prober) PublicIP(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindPublicIP}}
	start := time.Now()

	ip, answers, errs := p.GetPublicIP(ctx)

	var b strings.Builder
	for _, src := range sortedKeys(answers) {
		fmt.Fprintf(&b, "%s: %s\n", src, answers[src])
	}
	for _, err := range errs {
		fmt.Fprintf(&b, "error: %v\n", err)
	}

	out := model.ProbeOutput{
		Command:  "GET " + strings.Join(p.cfg.PublicIPSources, " "),
		Text:     b.String(),
		Stdout:   b.String(),
		Status:   model.StatusSuccess,
		Duration: time.Since(start),
	}
	if ctx.Err() != nil {
		out.Status = model.StatusCancelled
	}
	res.Outputs = append(res.Outputs, out)

	if ip == "" {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: "no IP provider responded"}
		return res
	}

	res.Invocation.Target = ip
	res.AddDetail("Public IP", "%s", ip)
	res.AddDetail("Agreement", "%d of %d providers", countOf(answers, ip), len(p.cfg.PublicIPSources))
	if info, err := p.GetASNInfo(ctx, ip); err == nil {
		res.AddDetail("ASN", "%s", info.ASN)
		res.AddDetail("ISP", "%s (%s)", info.ISP, info.Org)
		res.AddDetail("Location", "%s, %s", info.City, info.Country)
	} else {
		res.AddDetail("ASN", "unavailable: %v", err)
	}
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	return res
}

// GetPublicIP queries every configured provider concurrently and returns the
// consensus address, each provider's answer and the provider errors.
func (p *Prober) GetPublicIP(ctx context.Context) (string, map[string]string, []error) {
	type answer struct {
		source string
		ip     string
		err    error
	}

	sources := p.cfg.PublicIPSources
	results := make(chan answer, len(sources))
	for _, src := range sources {
		go func(src string) {
			ip, err := p.fetchIP(ctx, src)
			results <- answer{source: src, ip: ip, err: err}
		}(src)
	}

	answers := make(map[string]string)
	var errs []error
	for range sources {
		a := <-results
		if a.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.source, a.err))
			continue
		}
		answers[a.source] = a.ip
	}

	if len(answers) == 0 {
		return "", answers, errs
	}
	return consensus(answers), answers, errs
}

func (p *Prober) fetchIP(ctx context.Context, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "netdiag/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid IP: %q", ip)
	}
	return ip, nil
}

// consensus returns the most common address, breaking ties by value so the
// answer does not depend on map order.
func consensus(answers map[string]string) string {
	counts := make(map[string]int)
	for _, ip := range answers {
		counts[ip]++
	}

	var best string
	var bestCount int
	for ip, count := range counts {
		if count > bestCount || (count == bestCount && ip < best) {
			best, bestCount = ip, count
		}
	}
	return best
}

func countOf(answers map[string]string, ip string) int {
	n := 0
	for _, v := range answers {
		if v == ip {
			n++
		}
	}
	return n
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetASNInfo fetches ASN and ISP information for an IP.
func (p *Prober) GetASNInfo(ctx context.Context, ip string) (*ASNInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(asnLookupURL, url.PathEscape(ip)), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ASN info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ASN API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read ASN response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to decode ASN response")
	}

	doc := gjson.ParseBytes(body)
	return &ASNInfo{
		IP:      doc.Get("query").String(),
		ASN:     doc.Get("as").String(),
		ISP:     doc.Get("isp").String(),
		Org:     doc.Get("org").String(),
		Country: doc.Get("country").String(),
		City:    doc.Get("city").String(),
	}, nil
}
