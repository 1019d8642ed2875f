// Package model defines core data structures for netdiag.
package model

import (
	"fmt"
	"time"
)

// ProbeKind identifies which external probe produced an output.
type ProbeKind string

const (
	KindPing          ProbeKind = "ping"
	KindGatewayPing   ProbeKind = "gateway-ping"
	KindInterfacePing ProbeKind = "interface-ping"
	KindLatency       ProbeKind = "latency"
	KindSpeedtest     ProbeKind = "speedtest"
	KindDownload      ProbeKind = "download"
	KindPortScan      ProbeKind = "port-scan"
	KindTraceroute    ProbeKind = "traceroute"
	KindMTR           ProbeKind = "mtr"
	KindMTU           ProbeKind = "mtu-discovery"
	KindDNSCheck      ProbeKind = "dns-check"
	KindDNSBlock      ProbeKind = "dns-block"
	KindCaptive       ProbeKind = "captive-check"
	KindWiFi          ProbeKind = "wifi-scan"
	KindNetcat        ProbeKind = "netcat"
	KindWhois         ProbeKind = "whois"
	KindDiscover      ProbeKind = "discover"
	KindInterfaces    ProbeKind = "interfaces"
	KindRoutes        ProbeKind = "routes"
	KindGateways      ProbeKind = "gateways"
	KindPublicIP      ProbeKind = "public-ip"
	KindDHCP          ProbeKind = "dhcp"
)

// ProbeInvocation describes a single probe request. It is created by the
// caller and consumed once.
type ProbeInvocation struct {
	Kind      ProbeKind     `json:"kind"`
	Target    string        `json:"target,omitempty"`
	Count     int           `json:"count,omitempty"`
	Ports     []int         `json:"ports,omitempty"`
	Protocol  string        `json:"protocol,omitempty"`
	Interface string        `json:"interface,omitempty"`
	Range     string        `json:"range,omitempty"`
	URL       string        `json:"url,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

// Title returns the base name used when the invocation's result is saved.
func (p ProbeInvocation) Title() string {
	if p.Target == "" {
		return string(p.Kind)
	}
	return fmt.Sprintf("%s_%s", p.Kind, p.Target)
}

// OutputStatus is the completion status of a probe process.
type OutputStatus string

const (
	StatusSuccess         OutputStatus = "success"
	StatusTimedOut        OutputStatus = "timed-out"
	StatusCancelled       OutputStatus = "cancelled"
	StatusCommandNotFound OutputStatus = "command-not-found"
	StatusProcessError    OutputStatus = "process-error"
)

// ProbeOutput is the raw result of running an external command. Streamed
// runs fill Text with merged stdout and stderr; captured runs keep the
// streams apart and set Text to stdout.
type ProbeOutput struct {
	Command  string        `json:"command"`
	Text     string        `json:"text"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	JSON     []byte        `json:"-"`
	ExitCode int           `json:"exit_code"`
	Status   OutputStatus  `json:"status"`
	Duration time.Duration `json:"duration"`
}

// Started reports whether the process was launched at all.
func (o ProbeOutput) Started() bool {
	return o.Status != StatusCommandNotFound && o.Status != StatusProcessError
}

// Terminated reports whether the run was cut short by a timeout or cancellation.
func (o ProbeOutput) Terminated() bool {
	return o.Status == StatusTimedOut || o.Status == StatusCancelled
}

// DNSPortState holds port 53 reachability per transport.
type DNSPortState struct {
	TCP bool `json:"tcp"`
	UDP bool `json:"udp"`
}

// MetricSet holds the measurements extracted from one probe's output.
// A nil field means the value could not be derived, which is different
// from a measured zero.
type MetricSet struct {
	LatencyMs     *float64      `json:"latency_ms,omitempty"`
	JitterMs      *float64      `json:"jitter_ms,omitempty"`
	PacketLossPct *float64      `json:"packet_loss_pct,omitempty"`
	DownloadMbps  *float64      `json:"download_mbps,omitempty"`
	UploadMbps    *float64      `json:"upload_mbps,omitempty"`
	MTUBytes      *int          `json:"mtu_bytes,omitempty"`
	PortStates    map[int]bool  `json:"port_states,omitempty"`
	DNSPort       *DNSPortState `json:"dns_port_reachable,omitempty"`
	CaptivePortal *bool         `json:"captive_portal_detected,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Empty reports whether no field of the set is present.
func (m MetricSet) Empty() bool {
	return m.LatencyMs == nil && m.JitterMs == nil && m.PacketLossPct == nil &&
		m.DownloadMbps == nil && m.UploadMbps == nil && m.MTUBytes == nil &&
		m.PortStates == nil && m.DNSPort == nil && m.CaptivePortal == nil
}

// Value returns the named numeric metric and whether it is present.
func (m MetricSet) Value(name string) (float64, bool) {
	var p *float64
	switch name {
	case MetricLatency:
		p = m.LatencyMs
	case MetricJitter:
		p = m.JitterMs
	case MetricPacketLoss:
		p = m.PacketLossPct
	case MetricDownload:
		p = m.DownloadMbps
	case MetricUpload:
		p = m.UploadMbps
	case MetricMTU:
		if m.MTUBytes != nil {
			return float64(*m.MTUBytes), true
		}
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Validate checks that present values are non-negative and that packet loss
// is a percentage.
func (m MetricSet) Validate() error {
	for _, name := range []string{MetricLatency, MetricJitter, MetricPacketLoss, MetricDownload, MetricUpload, MetricMTU} {
		if v, ok := m.Value(name); ok && v < 0 {
			return fmt.Errorf("%s is negative: %v", name, v)
		}
	}
	if m.PacketLossPct != nil && *m.PacketLossPct > 100 {
		return fmt.Errorf("%s out of range: %v", MetricPacketLoss, *m.PacketLossPct)
	}
	return nil
}

// Metric names.
const (
	MetricLatency    = "latency_ms"
	MetricJitter     = "jitter_ms"
	MetricPacketLoss = "packet_loss_pct"
	MetricDownload   = "download_mbps"
	MetricUpload     = "upload_mbps"
	MetricMTU        = "mtu_bytes"
)

// Severity tags a matched rule.
type Severity string

const (
	SeverityOK   Severity = "ok"
	SeverityWarn Severity = "warn"
	SeverityBad  Severity = "bad"
)

// Comparator is the direction of a threshold check.
type Comparator string

const (
	Above Comparator = ">"
	Below Comparator = "<"
)

// Rule is a guarded threshold on a single metric.
type Rule struct {
	Metric     string     `json:"metric"`
	Comparator Comparator `json:"comparator"`
	Threshold  float64    `json:"threshold"`
	Severity   Severity   `json:"severity"`
	Issue      string     `json:"issue"`
	Cause      string     `json:"cause,omitempty"`
	Remedy     string     `json:"remedy,omitempty"`
}

// Matches reports whether v trips the rule.
func (r Rule) Matches(v float64) bool {
	switch r.Comparator {
	case Above:
		return v > r.Threshold
	case Below:
		return v < r.Threshold
	}
	return false
}

// Issue is one matched rule in a diagnosis.
type Issue struct {
	Severity Severity `json:"severity"`
	Label    string   `json:"label"`
}

// Label is the aggregate classification of a diagnosis.
type Label string

const (
	LabelExcellent Label = "excellent"
	LabelGood      Label = "good, with fluctuations"
	LabelUnstable  Label = "unstable"
	LabelPoor      Label = "poor"
)

// Outcome records how far the pipeline got for one probe.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeToolMissing  Outcome = "tool-missing"
	OutcomeNoData       Outcome = "no-data"
	OutcomeParseFailure Outcome = "parse-failure"
	OutcomeInconclusive Outcome = "inconclusive"
)

// Diagnosis is the classified view of a metric set.
type Diagnosis struct {
	Outcome  Outcome  `json:"outcome"`
	Issues   []Issue  `json:"issues,omitempty"`
	Label    Label    `json:"label,omitempty"`
	Causes   []string `json:"causes,omitempty"`
	Remedies []string `json:"remedies,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// BadCount returns the number of bad-severity issues.
func (d Diagnosis) BadCount() int {
	return d.count(SeverityBad)
}

// WarnCount returns the number of warn-severity issues.
func (d Diagnosis) WarnCount() int {
	return d.count(SeverityWarn)
}

func (d Diagnosis) count(s Severity) int {
	n := 0
	for _, i := range d.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

// AccessPoint is one row of a Wi-Fi survey.
type AccessPoint struct {
	SSID     string `json:"ssid"`
	BSSID    string `json:"bssid"`
	Signal   string `json:"signal"`
	Security string `json:"security"`
	Channel  string `json:"channel"`
}

// TraceHop represents a single hop in a traceroute.
type TraceHop struct {
	HopNum    int     `json:"hop_num"`
	IP        string  `json:"ip"`
	LatencyMs float64 `json:"latency_ms"`
	Lost      bool    `json:"lost"`
}

// Detail is a labelled line shown alongside a probe's metrics.
type Detail struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ProbeResult carries everything one probe produced: the raw outputs of
// each command it ran, the extracted metrics and their diagnosis.
type ProbeResult struct {
	Invocation   ProbeInvocation `json:"invocation"`
	Outputs      []ProbeOutput   `json:"outputs,omitempty"`
	Metrics      MetricSet       `json:"metrics"`
	Diagnosis    Diagnosis       `json:"diagnosis"`
	Details      []Detail        `json:"details,omitempty"`
	Hops         []TraceHop      `json:"hops,omitempty"`
	AccessPoints []AccessPoint   `json:"access_points,omitempty"`
	Lines        []string        `json:"lines,omitempty"`
}

// Output returns the first command output, or a zero value.
func (r ProbeResult) Output() ProbeOutput {
	if len(r.Outputs) == 0 {
		return ProbeOutput{}
	}
	return r.Outputs[0]
}

// AddDetail appends a labelled line.
func (r *ProbeResult) AddDetail(key, format string, args ...interface{}) {
	r.Details = append(r.Details, Detail{Key: key, Value: fmt.Sprintf(format, args...)})
}

// LogRecord is a persisted diagnosis.
type LogRecord struct {
	Title     string    `json:"title"`
	Timestamp time.Time `json:"-"`
	Output    string    `json:"output"`
	Kind      ProbeKind `json:"kind,omitempty"`
	Label     Label     `json:"label,omitempty"`
}

// RecordTimeLayout is the timestamp layout used in record names and JSON.
const RecordTimeLayout = "2006-01-02_15-04-05"

// RecordInfo describes a stored record without its body.
type RecordInfo struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	TextPath  string    `json:"text_path"`
	JSONPath  string    `json:"json_path"`
}

// HistoryEntry is a row of the sqlite history index.
type HistoryEntry struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Title         string    `json:"title"`
	Kind          ProbeKind `json:"kind"`
	Label         Label     `json:"label"`
	Outcome       Outcome   `json:"outcome"`
	BadCount      int       `json:"bad_count"`
	WarnCount     int       `json:"warn_count"`
	LatencyMs     *float64  `json:"latency_ms,omitempty"`
	JitterMs      *float64  `json:"jitter_ms,omitempty"`
	PacketLossPct *float64  `json:"packet_loss_pct,omitempty"`
	DownloadMbps  *float64  `json:"download_mbps,omitempty"`
	UploadMbps    *float64  `json:"upload_mbps,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
