package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/prognosis"
	"github.com/user/netdiag/internal/report"
)

// Printer writes styled output to a terminal.
type Printer struct {
	w      io.Writer
	styles Styles
	width  int

	// ShowRaw prints captured command output after the diagnosis. Streamed
	// probes already showed their lines live.
	ShowRaw bool
}

// NewPrinter creates a printer for w. Plain disables color.
func NewPrinter(w io.Writer, plain bool) *Printer {
	return &Printer{
		w:      w,
		styles: NewStyles(newRenderer(w, plain)),
		width:  Width(w),
	}
}

// Styles returns the printer's styles.
func (p *Printer) Styles() Styles {
	return p.styles
}

// Line prints one styled live line from a streamed probe.
func (p *Printer) Line(line string) {
	fmt.Fprintln(p.w, p.styles.Raw.Render(line))
}

// Info prints a dim informational message.
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.styles.Dim.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Report prints a composed diagnosis report.
func (p *Printer) Report(r report.Report) {
	s := p.styles
	fmt.Fprintln(p.w, s.Header.Render(r.Heading))

	var body []string
	if r.Invocation.Target != "" {
		body = append(body, p.kv("Target", r.Invocation.Target))
	}
	if r.Invocation.Interface != "" {
		body = append(body, p.kv("Interface", r.Invocation.Interface))
	}
	if r.Invocation.URL != "" {
		body = append(body, p.kv("URL", r.Invocation.URL))
	}
	for _, line := range r.MetricLines() {
		if k, v, ok := strings.Cut(line, ": "); ok {
			body = append(body, p.kv(k, v))
		} else {
			body = append(body, line)
		}
	}
	for _, d := range r.Details {
		body = append(body, p.kv(d.Key, d.Value))
	}

	d := r.Diagnosis
	if d.Outcome != "" && d.Outcome != model.OutcomeOK {
		body = append(body, p.kv("Outcome", s.Warning.Render(string(d.Outcome))))
	}
	if d.Note != "" {
		body = append(body, s.Dim.Render(d.Note))
	}
	if d.Label != "" {
		body = append(body, p.kv("Classification", s.ForLabel(d.Label).Render(string(d.Label))))
	}
	for _, is := range d.Issues {
		body = append(body, s.ForSeverity(is.Severity).Render(fmt.Sprintf("● %s", is.Label)))
	}
	if len(d.Causes) > 0 {
		body = append(body, s.Title.Render("Probable causes"))
		for _, c := range d.Causes {
			body = append(body, "  - "+c)
		}
	}
	if len(d.Remedies) > 0 {
		body = append(body, s.Title.Render("Suggested remedies"))
		for _, rm := range d.Remedies {
			body = append(body, "  - "+rm)
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(p.w, s.Section.Width(p.boxWidth()).Render(strings.Join(body, "\n")))
	}

	if len(r.AccessPoints) > 0 {
		p.accessPoints(r.AccessPoints)
	}
	if r.Invocation.Kind == model.KindPortScan && len(r.Metrics.PortStates) > 0 {
		p.ports(r.Metrics.PortStates)
	}
	if len(r.Hops) > 0 {
		p.hops(r.Hops)
	}
	for _, l := range r.Lines {
		fmt.Fprintln(p.w, "  "+l)
	}

	if p.ShowRaw {
		for _, out := range r.Outputs {
			fmt.Fprintln(p.w, s.Dim.Render(fmt.Sprintf("$ %s (%s, exit %d)", out.Command, out.Status, out.ExitCode)))
			if text := strings.TrimRight(out.Text, "\n"); text != "" {
				fmt.Fprintln(p.w, s.Raw.Render(text))
			}
			if out.Stderr != "" && out.Stderr != out.Text {
				fmt.Fprintln(p.w, s.Warning.Render(strings.TrimRight(out.Stderr, "\n")))
			}
		}
	}
}

// Prognosis prints a prognosis panel.
func (p *Printer) Prognosis(pr prognosis.Prognosis) {
	s := p.styles
	var body []string
	if pr.Source != "" {
		body = append(body, p.kv("Record", pr.Source))
	}
	body = append(body, p.kv("Classification", s.ForLabel(pr.Label).Render(string(pr.Label))))
	if len(pr.Issues) == 0 {
		body = append(body, s.Success.Render(pr.Summary))
	}
	for _, is := range pr.Issues {
		body = append(body, s.ForSeverity(is.Severity).Render("● "+is.Label))
	}
	fmt.Fprintln(p.w, s.Header.Render("Network prognosis"))
	fmt.Fprintln(p.w, s.Section.Width(p.boxWidth()).Render(strings.Join(body, "\n")))
}

// Records prints a table of stored records.
func (p *Printer) Records(infos []model.RecordInfo) error {
	if len(infos) == 0 {
		p.Info("No records saved yet.")
		return nil
	}
	t := p.table()
	t.Header("#", "Record", "Title", "Saved")
	for i, info := range infos {
		if err := t.Append([]string{strconv.Itoa(i + 1), info.Name, info.Title, humanize.Time(info.Timestamp)}); err != nil {
			return err
		}
	}
	return t.Render()
}

// History prints index rows.
func (p *Printer) History(entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		p.Info("History is empty.")
		return nil
	}
	t := p.table()
	t.Header("When", "Kind", "Label", "Latency", "Loss", "Down", "Up", "Issues")
	for _, e := range entries {
		err := t.Append([]string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Kind),
			string(e.Label),
			optional(e.LatencyMs, "%.1f ms"),
			optional(e.PacketLossPct, "%.0f%%"),
			optional(e.DownloadMbps, "%.1f Mbps"),
			optional(e.UploadMbps, "%.1f Mbps"),
			fmt.Sprintf("%d bad / %d warn", e.BadCount, e.WarnCount),
		})
		if err != nil {
			return err
		}
	}
	return t.Render()
}

// Tools prints the external tool inventory.
func (p *Printer) Tools(tools []probes.Tool) error {
	t := p.table()
	t.Header("Tool", "Installed", "Used by")
	for _, tool := range tools {
		state := "no"
		if tool.Available {
			state = "yes"
		}
		if err := t.Append([]string{tool.Name, state, tool.UsedBy}); err != nil {
			return err
		}
	}
	return t.Render()
}

// Rules prints a family's threshold table.
func (p *Printer) Rules(family classify.Family, table classify.Table) error {
	fmt.Fprintln(p.w, p.styles.Title.Render(fmt.Sprintf("%s rules", family)))
	t := p.table()
	t.Header("Group", "Metric", "Condition", "Severity", "Issue")
	for _, g := range table {
		for _, r := range g.Rules {
			cond := fmt.Sprintf("%s %g", r.Comparator, r.Threshold)
			if err := t.Append([]string{g.Name, r.Metric, cond, string(r.Severity), r.Issue}); err != nil {
				return err
			}
		}
	}
	return t.Render()
}

func (p *Printer) accessPoints(aps []model.AccessPoint) {
	t := p.table()
	t.Header("SSID", "BSSID", "Signal", "Security", "Channel")
	for _, ap := range aps {
		_ = t.Append([]string{ap.SSID, ap.BSSID, ap.Signal, ap.Security, ap.Channel})
	}
	_ = t.Render()
}

func (p *Printer) ports(states map[int]bool) {
	ports := make([]int, 0, len(states))
	for port := range states {
		ports = append(ports, port)
	}
	sort.Ints(ports)

	t := p.table()
	t.Header("Port", "Service", "State")
	for _, port := range ports {
		state := "closed"
		if states[port] {
			state = "open"
		}
		_ = t.Append([]string{strconv.Itoa(port), probes.ServiceName(port), state})
	}
	_ = t.Render()
}

func (p *Printer) hops(hops []model.TraceHop) {
	t := p.table()
	t.Header("Hop", "Address", "Latency")
	for _, h := range hops {
		addr, lat := h.IP, fmt.Sprintf("%.1f ms", h.LatencyMs)
		if h.Lost {
			addr, lat = "* * *", "-"
		}
		_ = t.Append([]string{strconv.Itoa(h.HopNum), addr, lat})
	}
	_ = t.Render()
}

func (p *Printer) table() *tablewriter.Table {
	return tablewriter.NewWriter(p.w)
}

func (p *Printer) kv(k, v string) string {
	return p.styles.Label.Render(fmt.Sprintf("%-16s", k+":")) + " " + p.styles.Value.Render(v)
}

func (p *Printer) boxWidth() int {
	if p.width > 100 {
		return 96
	}
	return p.width - 4
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
