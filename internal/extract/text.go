package extract

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/user/netdiag/internal/model"
)

// FragmentationNeeded reports whether a don't-fragment ping was rejected
// or lost, meaning the payload is too large for the path.
func FragmentationNeeded(text string) bool {
	return strings.Contains(text, "Frag needed") ||
		strings.Contains(text, "Message too long") ||
		strings.Contains(text, "100% packet loss")
}

// EchoReply reports whether ping output contains at least one echo reply.
func EchoReply(text string) bool {
	return strings.Contains(text, "bytes from") || strings.Contains(text, "time=")
}

// CaptivePortal reports whether the generate_204 check got its expected
// answer. Any "204" in the response counts; this is a heuristic and can be
// fooled by unrelated content.
func CaptivePortal(text string) (reachable bool) {
	return strings.Contains(text, "204")
}

// WiFi parses nmcli -f SSID,BSSID,SIGNAL,SECURITY,CHAN device wifi list.
// The header is skipped. Short rows are padded, never dropped.
func WiFi(text string) []model.AccessPoint {
	lines := tableRows(text)
	if len(lines) < 2 {
		return nil
	}

	aps := make([]model.AccessPoint, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cols := fieldsN(strings.TrimSpace(line), 5)
		for len(cols) < 5 {
			cols = append(cols, "")
		}
		aps = append(aps, model.AccessPoint{
			SSID:     cols[0],
			BSSID:    cols[1],
			Signal:   cols[2],
			Security: cols[3],
			Channel:  cols[4],
		})
	}
	return aps
}

// fieldsN splits on runs of whitespace into at most n fields; the last field
// keeps the remainder of the line.
func fieldsN(s string, n int) []string {
	var out []string
	for len(out) < n-1 {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return append(out, s)
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

// Format: " 1  192.168.0.1  1.234 ms", " 2  host (10.0.0.1)  5.1 ms" or " 3  * * *"
var hopRe = regexp.MustCompile(`^\s*(\d+)\s+(?:\S+\s+\()?(?:(\d+\.\d+\.\d+\.\d+|[0-9a-fA-F:]+:[0-9a-fA-F:]*)\)?\s+(\d+\.?\d*)\s*ms|\*(?:\s+\*)*)`)

// Traceroute parses traceroute output into hops. Lines that are not hop
// lines, such as the header, are ignored.
func Traceroute(text string) []model.TraceHop {
	var hops []model.TraceHop

	for _, line := range splitLines(text) {
		matches := hopRe.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		hopNum, _ := strconv.Atoi(matches[1])
		hop := model.TraceHop{HopNum: hopNum, Lost: true}
		if matches[2] != "" {
			hop.IP = matches[2]
			hop.Lost = false
			hop.LatencyMs, _ = strconv.ParseFloat(matches[3], 64)
		}
		hops = append(hops, hop)
	}

	return hops
}

// virtualPrefixes are interface names that are not physical uplinks.
var virtualPrefixes = []string{"lo", "vir", "docker", "tun", "br-", "veth"}

// Interfaces parses ip -o link show and returns interface names, skipping
// loopback and virtual devices.
func Interfaces(text string) []string {
	var names []string
	for _, line := range splitLines(text) {
		parts := strings.SplitN(line, ": ", 3)
		if len(parts) < 2 {
			continue
		}
		name := strings.TrimSpace(parts[1])
		if i := strings.Index(name, "@"); i >= 0 {
			name = name[:i]
		}
		if name == "" || isVirtual(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func isVirtual(name string) bool {
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// DefaultRoutes returns the "default ..." lines of ip r output.
func DefaultRoutes(text string) []string {
	var routes []string
	for _, line := range splitLines(text) {
		if strings.HasPrefix(line, "default") {
			routes = append(routes, strings.TrimSpace(line))
		}
	}
	return routes
}

// Gateway returns the first default gateway address from ip r output.
func Gateway(text string) (string, bool) {
	for _, route := range DefaultRoutes(text) {
		fields := strings.Fields(route)
		if len(fields) >= 3 && fields[1] == "via" {
			return fields[2], true
		}
	}
	return "", false
}

// Discoveries keeps the netdiscover lines that look like host rows.
func Discoveries(text string) []string {
	var rows []string
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if IsDiscoveryLine(line) {
			rows = append(rows, line)
		}
	}
	return rows
}

// IsDiscoveryLine reports whether a netdiscover line carries an address.
func IsDiscoveryLine(line string) bool {
	return strings.Contains(line, ":") && strings.IndexFunc(line, unicode.IsDigit) >= 0
}

// tableRows splits text after leading blank lines. Blank rows below the
// header are kept so each maps to one record.
func tableRows(text string) []string {
	text = strings.TrimLeft(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	text = strings.TrimSuffix(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func splitLines(text string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
