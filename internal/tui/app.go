// Package tui provides a terminal browser for saved diagnoses.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/prognosis"
	"github.com/user/netdiag/internal/util"
)

// summaryWindow is how far back the label summary looks.
const summaryWindow = 7 * 24 * time.Hour

// Source is where the browser reads records from.
type Source interface {
	Dir() string
	List(pattern string) ([]model.RecordInfo, error)
	Load(name string) (model.LogRecord, error)
}

// LabelCounter summarizes recent classifications. It may be nil.
type LabelCounter interface {
	LabelCounts(since time.Time) (map[model.Label]int, error)
}

// App is the history browser.
type App struct {
	source  Source
	counter LabelCounter
	config  *util.Config
}

// NewApp creates a new browser over source.
func NewApp(source Source, counter LabelCounter, cfg *util.Config) *App {
	return &App{
		source:  source,
		counter: counter,
		config:  cfg,
	}
}

// Run starts the browser and reloads whenever the records directory changes.
func (a *App) Run() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		util.Warn("Live reload disabled: %v", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(a.source.Dir()); err != nil {
			util.Warn("Live reload disabled: %v", err)
			watcher = nil
		}
	}

	p := tea.NewProgram(newModel(a.source, a.counter, watcher), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

type viewMode int

const (
	modeList viewMode = iota
	modeDetail
)

// browser is the main bubbletea model.
type browser struct {
	source  Source
	counter LabelCounter
	watcher *fsnotify.Watcher

	records []model.RecordInfo
	counts  map[model.Label]int
	cursor  int
	mode    viewMode
	detail  viewport.Model
	current string
	spinner spinner.Model
	ready   bool
	width   int
	height  int
	err     error
	status  string
}

func newModel(source Source, counter LabelCounter, watcher *fsnotify.Watcher) browser {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SelectedStyle

	return browser{
		source:  source,
		counter: counter,
		watcher: watcher,
		spinner: s,
		detail:  viewport.New(80, 20),
		width:   80,
		height:  24,
	}
}

// Init initializes the model.
func (m browser) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadRecords(m.source, m.counter),
		watchRecords(m.watcher),
	)
}

// Update handles messages.
func (m browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = detailHeight(msg.Height)

	case recordsMsg:
		m.ready = true
		m.err = nil
		m.records = msg.records
		m.counts = msg.counts
		if m.cursor >= len(m.records) {
			m.cursor = max(len(m.records)-1, 0)
		}

	case recordMsg:
		m.mode = modeDetail
		m.current = msg.name
		m.detail.SetContent(msg.body)
		m.detail.GotoTop()

	case changedMsg:
		m.status = "records changed, reloaded"
		return m, tea.Batch(loadRecords(m.source, m.counter), watchRecords(m.watcher))

	case errMsg:
		m.err = msg.err

	case spinner.TickMsg:
		if m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m browser) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.status = ""
		return m, loadRecords(m.source, m.counter)
	}

	if m.mode == modeDetail {
		switch msg.String() {
		case "esc", "backspace", "h", "left":
			m.mode = modeList
			return m, nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.records)-1, 0)
	case "enter", "l", "right":
		if len(m.records) > 0 {
			return m, loadRecord(m.source, m.records[m.cursor].Name)
		}
	}
	return m, nil
}

// View renders the UI.
func (m browser) View() string {
	if m.err != nil {
		return ErrorStyle.Render("Error: "+m.err.Error()) + "\n" + HelpStyle.Render("r retry • q quit")
	}
	if !m.ready {
		return LoadingStyle.Render(m.spinner.View() + " Loading records...")
	}
	if m.mode == modeDetail {
		return m.detailView()
	}
	return m.listView()
}

// Messages
type recordsMsg struct {
	records []model.RecordInfo
	counts  map[model.Label]int
}

type recordMsg struct {
	name string
	body string
}

type changedMsg struct{}

type errMsg struct {
	err error
}

func loadRecords(source Source, counter LabelCounter) tea.Cmd {
	return func() tea.Msg {
		records, err := source.List("")
		if err != nil {
			return errMsg{err}
		}
		msg := recordsMsg{records: records}
		if counter != nil {
			if counts, err := counter.LabelCounts(time.Now().Add(-summaryWindow)); err == nil {
				msg.counts = counts
			} else {
				util.Debug("Label summary unavailable: %v", err)
			}
		}
		return msg
	}
}

func loadRecord(source Source, name string) tea.Cmd {
	return func() tea.Msg {
		rec, err := source.Load(name)
		if err != nil {
			return errMsg{err}
		}
		p := prognosis.Analyze(rec.Output)
		p.Source = name

		var b strings.Builder
		b.WriteString(rec.Output)
		if !strings.HasSuffix(rec.Output, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(p.Text())
		return recordMsg{name: name, body: b.String()}
	}
}

// watchRecords waits for the next record file change. Each change message
// re-arms the watch.
func watchRecords(w *fsnotify.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if strings.HasSuffix(ev.Name, ".json") &&
					ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
					return changedMsg{}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				util.Warn("Record watcher: %v", err)
			}
		}
	}
}

func detailHeight(h int) int {
	if h > 6 {
		return h - 4
	}
	return h
}
