// Package prognosis re-analyzes saved diagnosis text.
package prognosis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/model"
)

// SummaryClean is reported when no pattern trips.
const SummaryClean = "no critical problem identified"

var (
	lossRe     = regexp.MustCompile(`(\d+)% packet loss`)
	latencyRe  = regexp.MustCompile(`Average latency: (\d+\.\d+)`)
	downloadRe = regexp.MustCompile(`Average download speed: (\d+\.\d+)`)
)

// Prognosis is the result of re-reading one stored record.
type Prognosis struct {
	Source  string        `json:"source,omitempty"`
	Issues  []model.Issue `json:"issues,omitempty"`
	Label   model.Label   `json:"label"`
	Summary string        `json:"summary"`
}

// Analyze applies the prognosis patterns to text. Only the first match of
// each pattern counts. It never fails; text with no match is clean.
func Analyze(text string) Prognosis {
	var p Prognosis

	if m := lossRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 10 {
			p.Issues = append(p.Issues, model.Issue{Severity: model.SeverityBad, Label: "high packet loss"})
		}
	}
	if m := latencyRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 150 {
			p.Issues = append(p.Issues, model.Issue{Severity: model.SeverityBad, Label: "excessive latency (>150ms)"})
		}
	}
	if m := downloadRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v < 10 {
			p.Issues = append(p.Issues, model.Issue{Severity: model.SeverityWarn, Label: "low speed (<10Mbps)"})
		}
	}

	p.Label = classify.Aggregate(p.Issues)
	if len(p.Issues) == 0 {
		p.Summary = SummaryClean
		return p
	}

	lines := make([]string, len(p.Issues))
	for i, is := range p.Issues {
		lines[i] = fmt.Sprintf("[%s] %s", is.Severity, is.Label)
	}
	p.Summary = strings.Join(lines, "\n")
	return p
}

// Text renders the prognosis as the body of a record.
func (p Prognosis) Text() string {
	var b strings.Builder
	b.WriteString("=== Network prognosis ===\n")
	if p.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", p.Source)
	}
	fmt.Fprintf(&b, "Classification: %s\n\n", p.Label)
	b.WriteString(p.Summary)
	b.WriteString("\n")
	return b.String()
}
