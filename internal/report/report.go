// Package report composes probe results into plain-text diagnosis reports.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/netdiag/internal/model"
)

var headings = map[model.ProbeKind]string{
	model.KindPing:          "Ping",
	model.KindGatewayPing:   "Gateway ping",
	model.KindInterfacePing: "Interface ping",
	model.KindLatency:       "Latency and jitter",
	model.KindSpeedtest:     "Speed test",
	model.KindDownload:      "HTTP download test",
	model.KindPortScan:      "Port scan",
	model.KindTraceroute:    "Traceroute",
	model.KindMTR:           "MTR report",
	model.KindMTU:           "MTU discovery",
	model.KindDNSCheck:      "DNS check",
	model.KindDNSBlock:      "DNS port 53 block check",
	model.KindCaptive:       "Captive portal check",
	model.KindWiFi:          "Wi-Fi survey",
	model.KindNetcat:        "Netcat port test",
	model.KindWhois:         "Whois lookup",
	model.KindDiscover:      "Network discovery",
	model.KindInterfaces:    "Active interfaces",
	model.KindRoutes:        "Addresses and routes",
	model.KindGateways:      "Default gateways",
	model.KindPublicIP:      "Public IP",
	model.KindDHCP:          "DHCP log",
}

// Heading returns the human title for a probe kind.
func Heading(kind model.ProbeKind) string {
	if h, ok := headings[kind]; ok {
		return h
	}
	return string(kind)
}

// Report is a composed diagnosis ready to print or persist.
type Report struct {
	Title        string                `json:"title"`
	Heading      string                `json:"heading"`
	Invocation   model.ProbeInvocation `json:"invocation"`
	Metrics      model.MetricSet       `json:"metrics"`
	Diagnosis    model.Diagnosis       `json:"diagnosis"`
	Details      []model.Detail        `json:"details,omitempty"`
	Hops         []model.TraceHop      `json:"hops,omitempty"`
	AccessPoints []model.AccessPoint   `json:"access_points,omitempty"`
	Lines        []string              `json:"lines,omitempty"`
	Outputs      []model.ProbeOutput   `json:"outputs,omitempty"`
}

// Compose builds the report for one probe result.
func Compose(res model.ProbeResult) Report {
	return Report{
		Title:        res.Invocation.Title(),
		Heading:      Heading(res.Invocation.Kind),
		Invocation:   res.Invocation,
		Metrics:      res.Metrics,
		Diagnosis:    res.Diagnosis,
		Details:      res.Details,
		Hops:         res.Hops,
		AccessPoints: res.AccessPoints,
		Lines:        res.Lines,
		Outputs:      res.Outputs,
	}
}

// MetricLines returns one line per present metric, in a fixed order.
func (r Report) MetricLines() []string {
	m := r.Metrics
	var lines []string

	if m.LatencyMs != nil {
		lines = append(lines, fmt.Sprintf("Average latency: %.2f ms", *m.LatencyMs))
	}
	if m.JitterMs != nil {
		lines = append(lines, fmt.Sprintf("Jitter: %.2f ms", *m.JitterMs))
	}
	if m.PacketLossPct != nil {
		lines = append(lines, fmt.Sprintf("Packet loss: %s%%", trimFloat(*m.PacketLossPct)))
	}
	if m.DownloadMbps != nil {
		if r.Invocation.Kind == model.KindDownload {
			lines = append(lines, fmt.Sprintf("Average download speed: %.2f Mbps", *m.DownloadMbps))
		} else {
			lines = append(lines, fmt.Sprintf("Download: %.2f Mbps", *m.DownloadMbps))
		}
	}
	if m.UploadMbps != nil {
		lines = append(lines, fmt.Sprintf("Upload: %.2f Mbps", *m.UploadMbps))
	}
	if m.MTUBytes != nil {
		lines = append(lines, fmt.Sprintf("Estimated MTU: %d bytes", *m.MTUBytes))
	}
	if len(m.PortStates) > 0 {
		open := 0
		for _, isOpen := range m.PortStates {
			if isOpen {
				open++
			}
		}
		lines = append(lines, fmt.Sprintf("Open ports: %d of %d", open, len(m.PortStates)))
	}
	if m.DNSPort != nil {
		lines = append(lines,
			fmt.Sprintf("Port 53 TCP reachable: %s", yesNo(m.DNSPort.TCP)),
			fmt.Sprintf("Port 53 UDP reachable: %s", yesNo(m.DNSPort.UDP)))
	}
	if m.CaptivePortal != nil {
		lines = append(lines, fmt.Sprintf("Captive portal detected: %s", yesNo(*m.CaptivePortal)))
	}
	return lines
}

// Text renders the report as plain text with no display markup.
func (r Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s ===\n", r.Heading)
	if t := r.Invocation.Target; t != "" {
		fmt.Fprintf(&b, "Target: %s\n", t)
	}
	if r.Invocation.Interface != "" {
		fmt.Fprintf(&b, "Interface: %s\n", r.Invocation.Interface)
	}
	if r.Invocation.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", r.Invocation.URL)
	}

	if lines := r.MetricLines(); len(lines) > 0 {
		b.WriteString("\nMetrics:\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "  %s\n", l)
		}
	}

	for _, d := range r.Details {
		fmt.Fprintf(&b, "%s: %s\n", d.Key, d.Value)
	}

	d := r.Diagnosis
	b.WriteString("\n")
	if d.Outcome != model.OutcomeOK && d.Outcome != "" {
		fmt.Fprintf(&b, "Outcome: %s\n", d.Outcome)
	}
	if d.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", d.Note)
	}
	if d.Label != "" {
		fmt.Fprintf(&b, "Classification: %s\n", d.Label)
	}
	writeList(&b, "Issues", issueLines(d.Issues))
	writeList(&b, "Probable causes", d.Causes)
	writeList(&b, "Suggested remedies", d.Remedies)

	if len(r.AccessPoints) > 0 {
		b.WriteString("\nNetworks:\n")
		for _, ap := range r.AccessPoints {
			fmt.Fprintf(&b, "  %-24s %-18s signal %-4s %-12s ch %s\n", ap.SSID, ap.BSSID, ap.Signal, ap.Security, ap.Channel)
		}
	}
	if len(r.Lines) > 0 {
		b.WriteString("\n")
		for _, l := range r.Lines {
			fmt.Fprintf(&b, "  %s\n", l)
		}
	}
	if len(r.Hops) > 0 {
		b.WriteString("\nPath:\n")
		b.WriteString(HopDiagram(r.Invocation.Target, r.Hops))
	}

	for _, out := range r.Outputs {
		fmt.Fprintf(&b, "\n--- %s (%s) ---\n", out.Command, out.Status)
		if out.Text != "" {
			b.WriteString(strings.TrimRight(out.Text, "\n"))
			b.WriteString("\n")
		}
		if out.Stderr != "" && out.Stderr != out.Text {
			b.WriteString("[stderr]\n")
			b.WriteString(strings.TrimRight(out.Stderr, "\n"))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// Record converts the report into a persistable record stamped at now.
func (r Report) Record(now time.Time) model.LogRecord {
	return model.LogRecord{
		Title:     r.Title,
		Timestamp: now.Truncate(time.Second),
		Output:    r.Text(),
		Kind:      r.Invocation.Kind,
		Label:     r.Diagnosis.Label,
	}
}

func issueLines(issues []model.Issue) []string {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = fmt.Sprintf("[%s] %s", is.Severity, is.Label)
	}
	return lines
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
