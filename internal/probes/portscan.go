package probes

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/netdiag/internal/model"
)

// scanConcurrency bounds simultaneous connection attempts.
const scanConcurrency = 20

// DefaultPorts returns the ports checked when none are given.
func DefaultPorts() []int {
	return []int{21, 22, 23, 25, 53, 80, 110, 143, 443, 445, 993, 995, 3306, 3389, 5432, 8080, 8443}
}

// Port service names mapping.
var serviceNames = map[int]string{
	21: "ftp", 22: "ssh", 23: "telnet", 25: "smtp", 53: "dns",
	80: "http", 110: "pop3", 111: "rpc", 135: "msrpc", 139: "netbios",
	143: "imap", 443: "https", 445: "smb", 993: "imaps", 995: "pop3s",
	1433: "mssql", 1521: "oracle", 1723: "pptp", 3306: "mysql", 3389: "rdp",
	5432: "postgresql", 5900: "vnc", 6379: "redis", 8080: "http-alt",
	8443: "https-alt", 8888: "http-alt", 9092: "kafka", 27017: "mongodb",
}

// ServiceName returns the well-known service for port, or "unknown".
func ServiceName(port int) string {
	if name, ok := serviceNames[port]; ok {
		return name
	}
	return "unknown"
}

// ParsePorts parses a comma separated list of ports and lo-hi ranges such
// as "22,80,443,8000-8100". Duplicates are dropped; order is kept.
func ParsePorts(s string) ([]int, error) {
	var ports []int
	seen := make(map[int]bool)
	add := func(port int) {
		if !seen[port] {
			seen[port] = true
			ports = append(ports, port)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err1 := parsePort(lo)
			to, err2 := parsePort(hi)
			if err1 != nil || err2 != nil || from > to {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			for port := from; port <= to; port++ {
				add(port)
			}
			continue
		}
		port, err := parsePort(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		add(port)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports given")
	}
	return ports, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

type portResult struct {
	open   bool
	banner string
}

// PortScan attempts a TCP connection to each port on host. A port is open
// when the connection succeeds within port_timeout; refusals and timeouts
// both count as closed.
func (p *Prober) PortScan(ctx context.Context, host string, ports []int) model.ProbeResult {
	if len(ports) == 0 {
		ports = DefaultPorts()
	}
	res := model.ProbeResult{Invocation: model.ProbeInvocation{
		Kind:     model.KindPortScan,
		Target:   p.target(host),
		Ports:    ports,
		Protocol: "tcp",
		Timeout:  p.cfg.PortTimeout,
	}}

	start := time.Now()
	results := make(map[int]portResult, len(ports))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, port := range ports {
		port := port
		g.Go(func() error {
			r := p.scanPort(gctx, res.Invocation.Target, port)
			mu.Lock()
			results[port] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res.Metrics.PortStates = make(map[int]bool, len(results))
	var b strings.Builder
	fmt.Fprintf(&b, "Host: %s\n", res.Invocation.Target)
	for _, port := range sortedPorts(ports) {
		r := results[port]
		res.Metrics.PortStates[port] = r.open
		state := "closed"
		if r.open {
			state = "open"
		}
		fmt.Fprintf(&b, "Port %d (%s): %s\n", port, ServiceName(port), state)
		if r.banner != "" {
			fmt.Fprintf(&b, "  banner: %s\n", r.banner)
		}
	}

	status := model.StatusSuccess
	if ctx.Err() != nil {
		status = model.StatusCancelled
	}
	res.Outputs = append(res.Outputs, model.ProbeOutput{
		Command:  fmt.Sprintf("tcp connect %s ports %s", res.Invocation.Target, joinPorts(ports)),
		Text:     b.String(),
		Stdout:   b.String(),
		Status:   status,
		Duration: time.Since(start),
	})
	res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeOK}
	if status == model.StatusCancelled {
		res.Diagnosis.Note = "interrupted; unfinished ports are reported closed"
	}
	return res
}

func (p *Prober) scanPort(ctx context.Context, host string, port int) portResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PortTimeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return portResult{} // Port closed or filtered
	}
	defer conn.Close()

	return portResult{open: true, banner: grabBanner(conn, p.cfg.PortTimeout/4)}
}

func grabBanner(conn net.Conn, timeout time.Duration) string {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return ""
	}

	// Clean up banner
	banner := strings.TrimSpace(strings.ToValidUTF8(string(buf[:n]), ""))
	if i := strings.IndexAny(banner, "\r\n"); i >= 0 {
		banner = banner[:i]
	}
	return banner
}

func sortedPorts(ports []int) []int {
	seen := make(map[int]bool, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
