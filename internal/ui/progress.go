// Package ui renders the live view of a multi-unit check: one row per
// declaration unit with the phases it has passed and what each produced.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"hbind/internal/pipeline"
)

type rowState uint8

const (
	rowQueued rowState = iota
	rowRunning
	rowDone
	rowFailed
)

// unitRow is the state of one unit as seen through its events.
type unitRow struct {
	file    string
	state   rowState
	stage   pipeline.Stage // current or last started
	passed  []pipeline.Stage
	counts  map[pipeline.Stage]int
	total   int // entities, once done
	elapsed time.Duration
	err     error
}

func (r *unitRow) hasPassed(st pipeline.Stage) bool {
	_, ok := r.counts[st]
	return ok
}

type checkModel struct {
	title   string
	events  <-chan pipeline.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []unitRow
	byFile  map[string][]int // a file may be listed twice
	width   int
	done    bool
}

type eventMsg pipeline.Event
type closedMsg struct{}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// NewProgressModel returns a Bubble Tea model for a check over files. It
// quits once events is closed.
func NewProgressModel(title string, files []string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = runningStyle

	m := &checkModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		rows:    make([]unitRow, len(files)),
		byFile:  make(map[string][]int, len(files)),
		width:   80,
	}
	for i, file := range files {
		m.rows[i] = unitRow{file: file, counts: make(map[pipeline.Stage]int)}
		m.byFile[file] = append(m.byFile[file], i)
	}
	m.bar.Width = m.width - 4
	return m
}

func (m *checkModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *checkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(pipeline.Event(msg)), m.next())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *checkModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// row picks the row an event belongs to. Units listed more than once run
// in order of appearance, so the first row that has not finished wins.
func (m *checkModel) row(file string) *unitRow {
	idx := m.byFile[file]
	for _, i := range idx {
		if r := &m.rows[i]; r.state != rowDone && r.state != rowFailed {
			return r
		}
	}
	if len(idx) == 0 {
		return nil
	}
	return &m.rows[idx[len(idx)-1]]
}

func (m *checkModel) apply(ev pipeline.Event) tea.Cmd {
	if ev.File == "" {
		return nil
	}
	r := m.row(ev.File)
	if r == nil {
		return nil
	}
	switch ev.Status {
	case pipeline.StatusQueued:
		r.state = rowQueued
	case pipeline.StatusWorking:
		r.state = rowRunning
		r.stage = ev.Stage
	case pipeline.StatusPassed:
		if !r.hasPassed(ev.Stage) {
			r.passed = append(r.passed, ev.Stage)
		}
		r.counts[ev.Stage] = ev.Items
	case pipeline.StatusDone:
		r.state = rowDone
		r.total = ev.Items
		r.elapsed = ev.Elapsed
	case pipeline.StatusError:
		r.state = rowFailed
		r.stage = ev.Stage
		r.err = ev.Err
		r.elapsed = ev.Elapsed
	}
	return m.bar.SetPercent(m.fraction())
}

// fraction is the share of unit phases completed; finished units count in
// full whatever they passed.
func (m *checkModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 1
	}
	var passed int
	for i := range m.rows {
		r := &m.rows[i]
		if r.state == rowDone || r.state == rowFailed {
			passed += len(pipeline.Stages)
			continue
		}
		passed += len(r.passed)
	}
	return float64(passed) / float64(len(m.rows)*len(pipeline.Stages))
}

func (m *checkModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	var finished, failed int
	for i := range m.rows {
		switch m.rows[i].state {
		case rowDone:
			finished++
		case rowFailed:
			finished++
			failed++
		}
	}
	head := fmt.Sprintf("%s  %d/%d units", m.title, finished, len(m.rows))
	if failed > 0 {
		head += failedStyle.Render(fmt.Sprintf("  %d failed", failed))
	}
	mark := m.spinner.View()
	if m.done {
		mark = passedStyle.Render("✓")
	}

	var b strings.Builder
	b.WriteString(mark + " " + titleStyle.Render(head) + "\n\n")
	nameWidth := max(m.width/3, 16)
	for i := range m.rows {
		b.WriteString(m.renderRow(&m.rows[i], nameWidth))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// renderRow draws "<mark> <file> <phase ladder> <detail>".
func (m *checkModel) renderRow(r *unitRow, nameWidth int) string {
	var mark string
	switch r.state {
	case rowQueued:
		mark = faintStyle.Render("·")
	case rowRunning:
		mark = m.spinner.View()
	case rowDone:
		mark = passedStyle.Render("✓")
	case rowFailed:
		mark = failedStyle.Render("✗")
	}
	line := "  " + mark + " " + runewidth.FillRight(truncate(r.file, nameWidth), nameWidth) + " " + ladder(r)
	detail := rowDetail(r)
	if detail == "" {
		return line
	}
	room := m.width - runewidth.StringWidth(line) - 2
	if room < 8 {
		return line
	}
	if r.state == rowFailed {
		return line + "  " + failedStyle.Render(truncate(detail, room))
	}
	return line + "  " + faintStyle.Render(truncate(detail, room))
}

// ladder draws one cell per phase: passed, running, failed or pending.
func ladder(r *unitRow) string {
	var b strings.Builder
	for _, st := range pipeline.Stages {
		switch {
		case r.hasPassed(st):
			b.WriteString(passedStyle.Render("■"))
		case r.state == rowFailed && st == r.stage:
			b.WriteString(failedStyle.Render("■"))
		case r.state == rowRunning && st == r.stage:
			b.WriteString(runningStyle.Render("▪"))
		default:
			b.WriteString(faintStyle.Render("□"))
		}
	}
	return b.String()
}

func rowDetail(r *unitRow) string {
	switch r.state {
	case rowFailed:
		if r.err != nil {
			return r.err.Error()
		}
		return "failed in " + string(r.stage)
	case rowDone:
		return fmt.Sprintf("%d entities, %d diagnostics in %s",
			r.total, r.counts[pipeline.StageReport], r.elapsed.Round(time.Microsecond))
	case rowRunning:
		if len(r.passed) == 0 {
			return string(r.stage)
		}
		last := r.passed[len(r.passed)-1]
		return fmt.Sprintf("%s: %d %s", r.stage, r.counts[last], produced(last))
	}
	return ""
}

// produced names what a phase's item count measures.
func produced(st pipeline.Stage) string {
	switch st {
	case pipeline.StageLoad:
		return "declarations read"
	case pipeline.StageMerge:
		return "declarations merged"
	case pipeline.StageName:
		return "names assigned"
	case pipeline.StageResolve:
		return "types interned"
	case pipeline.StageLayout:
		return "records laid out"
	case pipeline.StageMacros:
		return "macros evaluated"
	case pipeline.StageClassify:
		return "entities classified"
	case pipeline.StageReport:
		return "diagnostics"
	}
	return "items"
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
