package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/user/netdiag/internal/model"
)

var summaryLabels = []model.Label{model.LabelExcellent, model.LabelGood, model.LabelUnstable, model.LabelPoor}

func (m browser) sectionWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

func (m browser) listView() string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Width(m.width).Render("netdiag history"))
	sb.WriteString("\n\n")

	if len(m.counts) > 0 {
		sb.WriteString(m.renderSummary())
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderRecords())
	sb.WriteString("\n")

	if m.status != "" {
		sb.WriteString(DimStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(HelpStyle.Render("↑/↓ select • enter open • r refresh • q quit"))
	return sb.String()
}

func (m browser) renderSummary() string {
	total := 0
	for _, n := range m.counts {
		total += n
	}

	var rows []string
	for _, l := range summaryLabels {
		n := m.counts[l]
		rows = append(rows, fmt.Sprintf("%s %s %d",
			LabelStyle.Render(LabelColor(l).Render(string(l))),
			RenderBar(n, total, 20),
			n))
	}
	return SectionStyle.Width(m.sectionWidth()).Render(
		SectionTitleStyle.Render("Last 7 days") + "\n" + strings.Join(rows, "\n"))
}

// visibleRange returns the slice of records that fits on screen around the cursor.
func (m browser) visibleRange() (int, int) {
	rows := m.height - 14
	if len(m.counts) == 0 {
		rows += 7
	}
	if rows < 5 {
		rows = 5
	}
	if len(m.records) <= rows {
		return 0, len(m.records)
	}
	start := m.cursor - rows/2
	if start < 0 {
		start = 0
	}
	end := start + rows
	if end > len(m.records) {
		end = len(m.records)
		start = end - rows
	}
	return start, end
}

func (m browser) renderRecords() string {
	title := SectionTitleStyle.Render(fmt.Sprintf("Saved records (%d)", len(m.records)))
	if len(m.records) == 0 {
		return SectionStyle.Width(m.sectionWidth()).Render(
			title + "\n" + DimStyle.Render("No records saved yet. Run a probe with --save."))
	}

	start, end := m.visibleRange()
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := m.records[i]
		line := fmt.Sprintf("%-40s %s", truncate(r.Title, 40), humanize.Time(r.Timestamp))
		if i == m.cursor {
			rows = append(rows, SelectedStyle.Render("▸ "+line))
		} else {
			rows = append(rows, "  "+line)
		}
	}
	if end < len(m.records) {
		rows = append(rows, DimStyle.Render(fmt.Sprintf("... and %d more", len(m.records)-end)))
	}

	return SectionStyle.Width(m.sectionWidth()).Render(title + "\n" + strings.Join(rows, "\n"))
}

func (m browser) detailView() string {
	header := HeaderStyle.Width(m.width).Render(m.current)
	footer := HelpStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓ scroll • esc back • q quit", m.detail.ScrollPercent()*100))
	return header + "\n" + m.detail.View() + "\n" + footer
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
