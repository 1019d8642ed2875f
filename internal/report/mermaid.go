package report

import (
	"fmt"
	"strings"

	"github.com/user/netdiag/internal/model"
)

// HopDiagram creates a Mermaid flowchart for a traceroute.
func HopDiagram(target string, hops []model.TraceHop) string {
	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("flowchart LR\n")
	sb.WriteString("    style Source fill:#90EE90\n")
	sb.WriteString("    style Target fill:#87CEEB\n")
	sb.WriteString("\n")

	sb.WriteString("    Source[This host]\n")

	prevNode := "Source"
	for _, hop := range hops {
		nodeID := fmt.Sprintf("H%d", hop.HopNum)
		if hop.Lost {
			fmt.Fprintf(&sb, "    %s[Hop %d\\n* * *]:::lost\n", nodeID, hop.HopNum)
		} else {
			fmt.Fprintf(&sb, "    %s[Hop %d\\n%s\\n%.1fms]\n", nodeID, hop.HopNum, hop.IP, hop.LatencyMs)
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", prevNode, nodeID)
		prevNode = nodeID
	}

	fmt.Fprintf(&sb, "    Target[%s]\n", nodeLabel(target))
	fmt.Fprintf(&sb, "    %s --> Target\n", prevNode)

	sb.WriteString("\n")
	sb.WriteString("    classDef lost fill:#FFB6C1,stroke:#FF0000\n")
	sb.WriteString("```\n")

	return sb.String()
}

// PathChange lists the responding hops that differ between two traces.
type PathChange struct {
	Added   []string
	Removed []string
}

// Changed reports whether any hop differs.
func (c PathChange) Changed() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0
}

// ComparePaths diffs the responding hop addresses of an older and newer
// trace to the same target.
func ComparePaths(older, newer []model.TraceHop) PathChange {
	oldSet := make(map[string]bool)
	newSet := make(map[string]bool)
	for _, h := range hopIPs(older) {
		oldSet[h] = true
	}

	var c PathChange
	for _, h := range hopIPs(newer) {
		newSet[h] = true
		if !oldSet[h] {
			c.Added = append(c.Added, h)
		}
	}
	for _, h := range hopIPs(older) {
		if !newSet[h] {
			c.Removed = append(c.Removed, h)
		}
	}
	return c
}

func hopIPs(hops []model.TraceHop) []string {
	ips := make([]string, 0, len(hops))
	for _, hop := range hops {
		if !hop.Lost && hop.IP != "" {
			ips = append(ips, hop.IP)
		}
	}
	return ips
}

func nodeLabel(s string) string {
	if s == "" {
		return "Destination"
	}
	// brackets and quotes break node syntax
	return strings.NewReplacer("[", "(", "]", ")", `"`, "'").Replace(s)
}
