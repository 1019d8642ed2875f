package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/model"
)

func latencyResult() model.ProbeResult {
	metrics := model.MetricSet{
		LatencyMs:     model.Float(160.456),
		JitterMs:      model.Float(3),
		PacketLossPct: model.Float(20),
	}
	return model.ProbeResult{
		Invocation: model.ProbeInvocation{Kind: model.KindLatency, Target: "8.8.8.8", Count: 10},
		Outputs: []model.ProbeOutput{{
			Command: "ping -c 10 8.8.8.8",
			Text:    "10 packets transmitted, 8 received, 20% packet loss\n",
			Status:  model.StatusSuccess,
		}},
		Metrics:   metrics,
		Diagnosis: classify.Classify(classify.FamilyLatency, metrics),
	}
}

func TestText_Latency(t *testing.T) {
	text := Compose(latencyResult()).Text()

	assert.True(t, strings.HasPrefix(text, "=== Latency and jitter ===\nTarget: 8.8.8.8\n"))
	assert.Contains(t, text, "Average latency: 160.46 ms")
	assert.Contains(t, text, "Jitter: 3.00 ms")
	assert.Contains(t, text, "Packet loss: 20%")
	assert.Contains(t, text, "Classification: unstable")
	assert.Contains(t, text, "  - [bad] high packet loss\n")
	assert.Contains(t, text, "  - [bad] very high latency\n")
	assert.Contains(t, text, "Probable causes:\n")
	assert.Contains(t, text, "Suggested remedies:\n")
	assert.Contains(t, text, "--- ping -c 10 8.8.8.8 (success) ---\n10 packets transmitted")
	assert.NotContains(t, text, "\x1b[")
}

func TestText_DownloadUsesAverageSpeedLine(t *testing.T) {
	res := model.ProbeResult{
		Invocation: model.ProbeInvocation{Kind: model.KindDownload, URL: "http://x/file"},
		Metrics:    model.MetricSet{DownloadMbps: model.Float(8.5)},
		Diagnosis:  model.Diagnosis{Outcome: model.OutcomeOK, Label: classify.DownloadLabel(8.5)},
	}
	text := Compose(res).Text()

	assert.Contains(t, text, "Average download speed: 8.50 Mbps")
	assert.NotContains(t, text, "Download: 8.50")
	assert.Contains(t, text, "Classification: unstable")
}

func TestText_ToolMissing(t *testing.T) {
	res := model.ProbeResult{
		Invocation: model.ProbeInvocation{Kind: model.KindSpeedtest},
		Diagnosis: model.Diagnosis{
			Outcome:  model.OutcomeToolMissing,
			Issues:   []model.Issue{{Severity: model.SeverityBad, Label: "tool not installed"}},
			Note:     "speedtest is not installed",
			Remedies: []string{"install the speedtest CLI"},
		},
	}
	text := Compose(res).Text()

	assert.Contains(t, text, "Outcome: tool-missing")
	assert.Contains(t, text, "Note: speedtest is not installed")
	assert.Contains(t, text, "[bad] tool not installed")
	assert.NotContains(t, text, "Metrics:")
	assert.NotContains(t, text, "Classification:")
}

func TestText_StderrShownSeparately(t *testing.T) {
	res := model.ProbeResult{
		Invocation: model.ProbeInvocation{Kind: model.KindNetcat, Target: "10.0.0.1"},
		Outputs: []model.ProbeOutput{{
			Command:  "nc -zv -w 3 10.0.0.1 22",
			Stderr:   "Connection refused\n",
			ExitCode: 1,
			Status:   model.StatusSuccess,
		}},
	}
	text := Compose(res).Text()
	assert.Contains(t, text, "[stderr]\nConnection refused\n")
}

func TestText_TracerouteHasDiagram(t *testing.T) {
	res := model.ProbeResult{
		Invocation: model.ProbeInvocation{Kind: model.KindTraceroute, Target: "1.1.1.1"},
		Hops: []model.TraceHop{
			{HopNum: 1, IP: "192.168.1.1", LatencyMs: 1.2},
			{HopNum: 2, Lost: true},
		},
	}
	text := Compose(res).Text()

	assert.Contains(t, text, "```mermaid\nflowchart LR\n")
	assert.Contains(t, text, "H1[Hop 1\\n192.168.1.1\\n1.2ms]")
	assert.Contains(t, text, "H2[Hop 2\\n* * *]:::lost")
	assert.Contains(t, text, "H2 --> Target")
	assert.Contains(t, text, "Target[1.1.1.1]")
}

func TestMetricLines_Order(t *testing.T) {
	r := Compose(model.ProbeResult{
		Invocation: model.ProbeInvocation{Kind: model.KindSpeedtest},
		Metrics: model.MetricSet{
			LatencyMs:     model.Float(12),
			JitterMs:      model.Float(1.5),
			PacketLossPct: model.Float(0.5),
			DownloadMbps:  model.Float(95.3),
			UploadMbps:    model.Float(20),
		},
	})

	assert.Equal(t, []string{
		"Average latency: 12.00 ms",
		"Jitter: 1.50 ms",
		"Packet loss: 0.5%",
		"Download: 95.30 Mbps",
		"Upload: 20.00 Mbps",
	}, r.MetricLines())
}

func TestMetricLines_Sockets(t *testing.T) {
	r := Compose(model.ProbeResult{
		Metrics: model.MetricSet{
			MTUBytes:      model.Int(1500),
			PortStates:    map[int]bool{22: true, 80: false, 443: true},
			DNSPort:       &model.DNSPortState{TCP: false, UDP: true},
			CaptivePortal: model.Bool(false),
		},
	})

	assert.Equal(t, []string{
		"Estimated MTU: 1500 bytes",
		"Open ports: 2 of 3",
		"Port 53 TCP reachable: no",
		"Port 53 UDP reachable: yes",
		"Captive portal detected: no",
	}, r.MetricLines())
}

func TestRecord(t *testing.T) {
	r := Compose(latencyResult())
	now := time.Date(2024, 5, 1, 12, 30, 45, 987654321, time.Local)

	rec := r.Record(now)

	require.Equal(t, "latency_8.8.8.8", rec.Title)
	assert.Equal(t, now.Truncate(time.Second), rec.Timestamp)
	assert.Equal(t, r.Text(), rec.Output)
	assert.Equal(t, model.KindLatency, rec.Kind)
	assert.Equal(t, model.LabelUnstable, rec.Label)
}

func TestCompose_Pure(t *testing.T) {
	res := latencyResult()
	assert.Equal(t, Compose(res).Text(), Compose(res).Text())
}

func TestComparePaths(t *testing.T) {
	older := []model.TraceHop{{HopNum: 1, IP: "10.0.0.1"}, {HopNum: 2, IP: "10.0.0.2"}, {HopNum: 3, Lost: true}}
	newer := []model.TraceHop{{HopNum: 1, IP: "10.0.0.1"}, {HopNum: 2, IP: "10.0.0.9"}}

	c := ComparePaths(older, newer)
	assert.True(t, c.Changed())
	assert.Equal(t, []string{"10.0.0.9"}, c.Added)
	assert.Equal(t, []string{"10.0.0.2"}, c.Removed)

	assert.False(t, ComparePaths(older, older).Changed())
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "MTU discovery", Heading(model.KindMTU))
	assert.Equal(t, "custom", Heading("custom"))
}
