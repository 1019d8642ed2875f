package probes

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
	"github.com/user/netdiag/internal/util"
)

// fakeExec answers commands from a table keyed by the full command line.
type fakeExec struct {
	mu        sync.Mutex
	available map[string]bool
	outputs   map[string]model.ProbeOutput
	calls     []string
	timeouts  []time.Duration
}

func newFakeExec(tools ...string) *fakeExec {
	f := &fakeExec{available: map[string]bool{}, outputs: map[string]model.ProbeOutput{}}
	for _, t := range tools {
		f.available[t] = true
	}
	return f
}

func (f *fakeExec) on(cmd string, text string) *fakeExec {
	f.outputs[cmd] = model.ProbeOutput{Command: cmd, Text: text, Stdout: text, Status: model.StatusSuccess}
	return f
}

func (f *fakeExec) onOutput(cmd string, out model.ProbeOutput) *fakeExec {
	out.Command = cmd
	f.outputs[cmd] = out
	return f
}

func (f *fakeExec) Available(name string) bool {
	return f.available[name]
}

func (f *fakeExec) RunCaptured(ctx context.Context, cmd runner.Command) model.ProbeOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd.String())
	if out, ok := f.outputs[cmd.String()]; ok {
		return out
	}
	return model.ProbeOutput{Command: cmd.String(), Status: model.StatusCommandNotFound, ExitCode: -1}
}

func (f *fakeExec) RunStreamed(ctx context.Context, cmd runner.Command, onLine func(string), timeout time.Duration) model.ProbeOutput {
	f.mu.Lock()
	f.timeouts = append(f.timeouts, timeout)
	f.mu.Unlock()
	out := f.RunCaptured(ctx, cmd)
	if onLine != nil {
		for _, line := range strings.Split(strings.TrimRight(out.Text, "\n"), "\n") {
			if line != "" {
				onLine(line)
			}
		}
	}
	return out
}

func (f *fakeExec) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestProber(exec runner.Executor) *Prober {
	cfg := util.DefaultConfig()
	cfg.PingCount = 3
	cfg.DoHURL = ""
	return New(exec, cfg)
}

const pingOutput = `PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.
64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=10.0 ms
64 bytes from 8.8.8.8: icmp_seq=2 ttl=117 time=12.0 ms
64 bytes from 8.8.8.8: icmp_seq=3 ttl=117 time=9.0 ms

--- 8.8.8.8 ping statistics ---
3 packets transmitted, 3 received, 0% packet loss, time 2003ms
`

func TestRequire_ToolMissingShortCircuits(t *testing.T) {
	exec := newFakeExec()
	p := newTestProber(exec)

	for _, res := range []model.ProbeResult{
		p.Speedtest(context.Background()),
		p.Latency(context.Background(), ""),
		p.Traceroute(context.Background(), "example.com"),
		p.WiFi(context.Background()),
	} {
		assert.Equal(t, model.OutcomeToolMissing, res.Diagnosis.Outcome, res.Invocation.Kind)
		assert.Equal(t, []model.Issue{{Severity: model.SeverityBad, Label: IssueToolMissing}}, res.Diagnosis.Issues)
		assert.True(t, res.Metrics.Empty())
		assert.Empty(t, res.Outputs)
	}
	assert.Empty(t, exec.Calls())
}

func TestLatency(t *testing.T) {
	exec := newFakeExec("ping").on("ping -c 3 8.8.8.8", pingOutput)
	res := newTestProber(exec).Latency(context.Background(), "")

	require.Equal(t, model.OutcomeOK, res.Diagnosis.Outcome)
	assert.Equal(t, "8.8.8.8", res.Invocation.Target)
	assert.InDelta(t, 10.333, *res.Metrics.LatencyMs, 0.001)
	assert.Equal(t, 3.0, *res.Metrics.JitterMs)
	assert.Equal(t, model.LabelExcellent, res.Diagnosis.Label)
}

func TestLatency_NoOutputIsNoData(t *testing.T) {
	exec := newFakeExec("ping").onOutput("ping -c 3 nowhere.invalid", model.ProbeOutput{
		Status:   model.StatusSuccess,
		ExitCode: 2,
		Stderr:   "ping: nowhere.invalid: Name or service not known\n",
	})
	res := newTestProber(exec).Latency(context.Background(), "nowhere.invalid")

	assert.Equal(t, model.OutcomeNoData, res.Diagnosis.Outcome)
	assert.Contains(t, res.Diagnosis.Note, "Name or service not known")
	assert.True(t, res.Metrics.Empty())
}

func TestLatency_AllLostIsInconclusive(t *testing.T) {
	exec := newFakeExec("ping").on("ping -c 3 10.9.9.9", "3 packets transmitted, 0 received, 100% packet loss, time 2040ms\n")
	res := newTestProber(exec).Latency(context.Background(), "10.9.9.9")

	assert.Equal(t, model.OutcomeInconclusive, res.Diagnosis.Outcome)
	assert.Nil(t, res.Metrics.LatencyMs)
	assert.Nil(t, res.Metrics.JitterMs)
	assert.Equal(t, 100.0, *res.Metrics.PacketLossPct)
	assert.Equal(t, "high packet loss", res.Diagnosis.Issues[0].Label)
}

func TestPing_StreamsLines(t *testing.T) {
	exec := newFakeExec("ping").on("ping -c 3 1.1.1.1", pingOutput)
	p := newTestProber(exec)
	var lines []string
	p.OnLine = func(s string) { lines = append(lines, s) }

	res := p.Ping(context.Background(), "1.1.1.1", 0)

	assert.Equal(t, 3, res.Invocation.Count)
	assert.Contains(t, lines, "64 bytes from 8.8.8.8: icmp_seq=2 ttl=117 time=12.0 ms")
	assert.Equal(t, model.OutcomeOK, res.Diagnosis.Outcome)
}

func TestInterfacePing(t *testing.T) {
	exec := newFakeExec("ping").on("ping -I wlan0 -c 5 8.8.8.8", pingOutput)
	res := newTestProber(exec).InterfacePing(context.Background(), "wlan0", "")

	assert.Equal(t, model.OutcomeOK, res.Diagnosis.Outcome)
	assert.Equal(t, []model.Detail{{Key: "Interface", Value: "wlan0"}}, res.Details)

	res = newTestProber(exec).InterfacePing(context.Background(), "", "")
	assert.Equal(t, model.OutcomeNoData, res.Diagnosis.Outcome)
}

func TestGatewayPing(t *testing.T) {
	lossy := strings.Replace(pingOutput, "0% packet loss", "30% packet loss", 1)
	exec := newFakeExec("ip", "ping").
		on("ip r", "default via 192.168.1.1 dev wlan0 proto dhcp\n").
		on("ping -c 3 192.168.1.1", lossy)

	res := newTestProber(exec).GatewayPing(context.Background())

	assert.Equal(t, "192.168.1.1", res.Invocation.Target)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, []model.Issue{{Severity: model.SeverityBad, Label: "high packet loss"}}, res.Diagnosis.Issues)
	assert.Equal(t, model.LabelUnstable, res.Diagnosis.Label)
}

func TestGatewayPing_NoGateway(t *testing.T) {
	exec := newFakeExec("ip", "ping").on("ip r", "10.0.0.0/8 dev tun0 scope link\n")
	res := newTestProber(exec).GatewayPing(context.Background())

	assert.Equal(t, model.OutcomeNoData, res.Diagnosis.Outcome)
	assert.Equal(t, []string{"ip r"}, exec.Calls())
}

const speedtestCmd = "speedtest --accept-license --accept-gdpr --format=json"

func TestSpeedtest(t *testing.T) {
	doc := `{"ping":{"latency":20,"jitter":2},"download":{"bandwidth":1000000},"upload":{"bandwidth":1000000},"isp":"ISP","server":{"name":"S","location":"L"}}`
	exec := newFakeExec("speedtest").on(speedtestCmd, doc)

	res := newTestProber(exec).Speedtest(context.Background())

	require.Equal(t, model.OutcomeOK, res.Diagnosis.Outcome)
	assert.Equal(t, 8.0, *res.Metrics.DownloadMbps)
	assert.Equal(t, []model.Issue{{Severity: model.SeverityBad, Label: "low bandwidth"}}, res.Diagnosis.Issues)
	assert.JSONEq(t, doc, string(res.Output().JSON))
	assert.Contains(t, res.Details, model.Detail{Key: "Server", Value: "S (L)"})
}

func TestSpeedtest_MalformedIsParseFailure(t *testing.T) {
	exec := newFakeExec("speedtest").on(speedtestCmd, "{not json")
	res := newTestProber(exec).Speedtest(context.Background())

	assert.Equal(t, model.OutcomeParseFailure, res.Diagnosis.Outcome)
	assert.True(t, res.Metrics.Empty())
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "{not json", res.Outputs[0].Text)
}

func TestDownload_BoundaryIsGood(t *testing.T) {
	url := "http://example.test/file.bin"
	exec := newFakeExec("curl").on("curl -o /dev/null -s -w %{size_download};%{time_total} "+url, "125000000;20.0")

	res := newTestProber(exec).Download(context.Background(), url)

	require.Equal(t, model.OutcomeOK, res.Diagnosis.Outcome)
	assert.Equal(t, 50.0, *res.Metrics.DownloadMbps)
	assert.Equal(t, model.LabelGood, res.Diagnosis.Label)
}

func TestDownload_Malformed(t *testing.T) {
	url := "http://example.test/file.bin"
	exec := newFakeExec("curl").on("curl -o /dev/null -s -w %{size_download};%{time_total} "+url, "0;0.000")

	res := newTestProber(exec).Download(context.Background(), url)
	assert.Equal(t, model.OutcomeParseFailure, res.Diagnosis.Outcome)
}

func TestMTU_AlwaysFragmentedStopsAtFloor(t *testing.T) {
	p := newTestProber(newFakeExec("ping"))
	var sizes []int
	p.pinger = func(ctx context.Context, target string, size int) model.ProbeOutput {
		sizes = append(sizes, size)
		return model.ProbeOutput{Text: "ping: local error: Message too long, mtu=1000", Status: model.StatusSuccess}
	}

	res := p.MTU(context.Background(), "")

	require.NotNil(t, res.Metrics.MTUBytes)
	assert.Equal(t, 1028, *res.Metrics.MTUBytes)
	assert.Equal(t, 1472, sizes[0])
	assert.Equal(t, 1002, sizes[len(sizes)-1])
	assert.Len(t, sizes, 48)
}

func TestMTU_StopsAtFirstSuccess(t *testing.T) {
	p := newTestProber(newFakeExec("ping"))
	p.pinger = func(ctx context.Context, target string, size int) model.ProbeOutput {
		if size > 1400 {
			return model.ProbeOutput{Text: "From 10.0.0.1 icmp_seq=1 Frag needed and DF set (mtu = 1420)", Status: model.StatusSuccess}
		}
		return model.ProbeOutput{Text: pingOutput, Status: model.StatusSuccess}
	}

	res := p.MTU(context.Background(), "")
	assert.Equal(t, 1420, *res.Metrics.MTUBytes)
}

func TestMTU_FailedPingIsNoData(t *testing.T) {
	tests := []struct {
		name string
		out  model.ProbeOutput
		note string
	}{
		{"process error", model.ProbeOutput{Command: "ping", Status: model.StatusProcessError, ExitCode: -1}, "process-error"},
		{"empty output", model.ProbeOutput{Command: "ping", Status: model.StatusSuccess}, "exit code 0"},
		{"unknown host", model.ProbeOutput{
			Command:  "ping",
			Stderr:   "ping: nosuchhost: Name or service not known",
			Status:   model.StatusSuccess,
			ExitCode: 2,
		}, "Name or service not known"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProber(newFakeExec("ping"))
			calls := 0
			p.pinger = func(ctx context.Context, target string, size int) model.ProbeOutput {
				calls++
				return tt.out
			}

			res := p.MTU(context.Background(), "nosuchhost")

			assert.Equal(t, 1, calls)
			assert.Nil(t, res.Metrics.MTUBytes)
			assert.Equal(t, model.OutcomeNoData, res.Diagnosis.Outcome)
			assert.Contains(t, res.Diagnosis.Note, "1472 bytes")
			assert.Contains(t, res.Diagnosis.Note, tt.note)
		})
	}
}

func TestSearchMTU(t *testing.T) {
	size, tried := SearchMTU(1472, 10, 1000, func(int) bool { return false })
	assert.Equal(t, 1472, size)
	assert.Equal(t, []int{1472}, tried)

	size, tried = SearchMTU(1000, 10, 1000, func(int) bool { return true })
	assert.Equal(t, 1000, size)
	assert.Empty(t, tried)
}

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	return l, l.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestPortScan(t *testing.T) {
	_, open := listen(t)
	closed := closedPort(t)

	res := newTestProber(newFakeExec()).PortScan(context.Background(), "127.0.0.1", []int{closed, open})

	assert.Equal(t, map[int]bool{open: true, closed: false}, res.Metrics.PortStates)
	text := res.Output().Text
	assert.Contains(t, text, "Port "+strconv.Itoa(open)+" (unknown): open")
	assert.Contains(t, text, "Port "+strconv.Itoa(closed)+" (unknown): closed")
}

func TestParsePorts(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "80, 443,22", want: []int{80, 443, 22}},
		{in: "22,80,443,8000-8003", want: []int{22, 80, 443, 8000, 8001, 8002, 8003}},
		{in: "10-12,11", want: []int{10, 11, 12}},
		{in: "5-5", want: []int{5}},
		{in: "80,http", wantErr: true},
		{in: "70000", wantErr: true},
		{in: " , ", wantErr: true},
		{in: "100-90", wantErr: true},
		{in: "0-10", wantErr: true},
		{in: "65530-65536", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "1-2-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ports, err := ParsePorts(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ports)
		})
	}
}

func TestDNSBlock(t *testing.T) {
	_, port := listen(t)
	p := newTestProber(newFakeExec())
	p.cfg.DNSResolver = "127.0.0.1"
	p.dnsPort = port

	res := p.DNSBlock(context.Background())
	assert.Equal(t, &model.DNSPortState{TCP: true, UDP: true}, res.Metrics.DNSPort)
	assert.Empty(t, res.Diagnosis.Issues)
	assert.Equal(t, model.LabelExcellent, res.Diagnosis.Label)

	// TCP filtered, UDP allowed
	dialer := &net.Dialer{}
	p.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		if network == "tcp" {
			return nil, errors.New("filtered")
		}
		return dialer.DialContext(ctx, network, address)
	}
	res = p.DNSBlock(context.Background())
	assert.Equal(t, &model.DNSPortState{TCP: false, UDP: true}, res.Metrics.DNSPort)
	assert.Equal(t, []model.Issue{{Severity: model.SeverityWarn, Label: "port 53 TCP blocked"}}, res.Diagnosis.Issues)
	assert.Contains(t, res.Output().Text, "Port 53 TCP: blocked")
	assert.Contains(t, res.Output().Text, "Port 53 UDP: reachable")
}

func TestCaptive(t *testing.T) {
	cmd := "curl -s -I --max-time 10 http://clients3.google.com/generate_204"

	res := newTestProber(newFakeExec("curl").on(cmd, "HTTP/1.1 204 No Content\r\n")).Captive(context.Background())
	assert.False(t, *res.Metrics.CaptivePortal)
	assert.Empty(t, res.Diagnosis.Issues)

	res = newTestProber(newFakeExec("curl").on(cmd, "HTTP/1.1 302 Found\r\nLocation: http://portal/\r\n")).Captive(context.Background())
	assert.True(t, *res.Metrics.CaptivePortal)
	assert.Equal(t, "possible redirection or block", res.Diagnosis.Issues[0].Label)
}

func TestGateways(t *testing.T) {
	two := "default via 192.168.1.1 dev wlan0\ndefault via 10.0.0.1 dev eth0\n"
	res := newTestProber(newFakeExec("ip").on("ip r", two)).Gateways(context.Background())
	assert.Len(t, res.Lines, 2)
	assert.Equal(t, model.LabelGood, res.Diagnosis.Label)

	res = newTestProber(newFakeExec("ip").on("ip r", "default via 192.168.1.1 dev wlan0\n")).Gateways(context.Background())
	assert.Empty(t, res.Diagnosis.Issues)
	assert.Equal(t, model.LabelExcellent, res.Diagnosis.Label)
}

func TestDiscover_FiltersLinesAndUsesTimeout(t *testing.T) {
	out := "Currently scanning: 192.168.1.0/24\n\n   IP   At MAC Address\n 192.168.1.1  aa:bb:cc:dd:ee:ff  1  60  Router\n"
	exec := newFakeExec("netdiscover").onOutput("netdiscover -i eth0 -r 192.168.1.0/24 -P -N", model.ProbeOutput{
		Text:   out,
		Status: model.StatusTimedOut,
	})
	p := newTestProber(exec)
	var shown []string
	p.OnLine = func(s string) { shown = append(shown, s) }

	res := p.Discover(context.Background(), "eth0", "192.168.1.0/24", 0)

	if len(exec.timeouts) > 0 {
		assert.Equal(t, 30*time.Second, exec.timeouts[0])
	}
	assert.Len(t, res.Lines, 2)
	assert.Len(t, shown, 2)
	assert.Contains(t, res.Diagnosis.Note, "partial")
	assert.Equal(t, model.OutcomeOK, res.Diagnosis.Outcome)
}

func TestDiscover_SudoWithoutCredentials(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("sudo is not used when running as root")
	}
	exec := newFakeExec("netdiscover", "sudo").onOutput("sudo -n netdiscover -i eth0 -P -N", model.ProbeOutput{
		Status:   model.StatusSuccess,
		ExitCode: 1,
		Stderr:   "sudo: a password is required\n",
	})

	res := newTestProber(exec).Discover(context.Background(), "eth0", "", time.Second)

	assert.Equal(t, []string{"sudo -n netdiscover -i eth0 -P -N"}, exec.Calls())
	assert.Equal(t, model.OutcomeNoData, res.Diagnosis.Outcome)
	assert.Contains(t, res.Diagnosis.Note, "needs root")
	assert.Contains(t, res.Diagnosis.Note, "a password is required")
	assert.Empty(t, res.Lines)
}

func TestWiFi(t *testing.T) {
	cmd := "nmcli -f SSID,BSSID,SIGNAL,SECURITY,CHAN device wifi list"

	res := newTestProber(newFakeExec("nmcli").on(cmd, "SSID BSSID SIGNAL SECURITY CHAN\nHome AA:BB 70 WPA2 6\n")).WiFi(context.Background())
	require.Len(t, res.AccessPoints, 1)
	assert.Equal(t, "Home", res.AccessPoints[0].SSID)

	res = newTestProber(newFakeExec("nmcli").on(cmd, "SSID BSSID SIGNAL SECURITY CHAN\n")).WiFi(context.Background())
	assert.Equal(t, model.OutcomeNoData, res.Diagnosis.Outcome)
}

func TestNetcat(t *testing.T) {
	exec := newFakeExec("nc").onOutput("nc -zv -w 3 -u 8.8.8.8 53", model.ProbeOutput{
		Status: model.StatusSuccess,
		Stderr: "Connection to 8.8.8.8 53 port [udp/domain] succeeded!\n",
	}).onOutput("nc -zv -w 3 10.0.0.1 22", model.ProbeOutput{
		Status:   model.StatusSuccess,
		ExitCode: 1,
		Stderr:   "nc: connect to 10.0.0.1 port 22 (tcp) failed: Connection refused\n",
	})
	p := newTestProber(exec)

	res := p.Netcat(context.Background(), "8.8.8.8", 53, "UDP")
	assert.Equal(t, map[int]bool{53: true}, res.Metrics.PortStates)
	assert.Equal(t, model.LabelExcellent, res.Diagnosis.Label)

	res = p.Netcat(context.Background(), "10.0.0.1", 22, "tcp")
	assert.Equal(t, map[int]bool{22: false}, res.Metrics.PortStates)
	assert.Equal(t, "connection refused or filtered", res.Diagnosis.Issues[0].Label)
}

func TestRun_Dispatch(t *testing.T) {
	exec := newFakeExec("whois").on("whois example.com", "Domain Name: EXAMPLE.COM\n")
	p := newTestProber(exec)

	res := p.Run(context.Background(), model.ProbeInvocation{Kind: model.KindWhois, Target: "example.com"})
	assert.Equal(t, model.OutcomeOK, res.Diagnosis.Outcome)
	assert.Equal(t, "whois_example.com", res.Invocation.Title())

	res = p.Run(context.Background(), model.ProbeInvocation{Kind: "bogus"})
	assert.Equal(t, model.OutcomeNoData, res.Diagnosis.Outcome)
}

func TestTools(t *testing.T) {
	tools := newTestProber(newFakeExec("ping", "curl")).Tools()

	byName := map[string]bool{}
	for _, tool := range tools {
		byName[tool.Name] = tool.Available
	}
	assert.True(t, byName["ping"])
	assert.True(t, byName["curl"])
	assert.False(t, byName["mtr"])
}

func TestConsensus(t *testing.T) {
	assert.Equal(t, "1.2.3.4", consensus(map[string]string{"a": "1.2.3.4", "b": "1.2.3.4", "c": "5.6.7.8"}))
	assert.Equal(t, "1.1.1.1", consensus(map[string]string{"a": "2.2.2.2", "b": "1.1.1.1"}))
}
