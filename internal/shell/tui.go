package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/pointdiff/internal/deviation"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	reportStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type phase int

const (
	phaseThreshold phase = iota
	phasePickFirst
	phasePickSecond
	phaseRunning
)

// ViewerReadyMsg tells the model the result is on screen at URL, either the
// viewer's address or the opened image path. Send it from the renderer's
// OnReady hook via tea.Program.Send.
type ViewerReadyMsg struct{ URL string }

type runDoneMsg struct {
	out *Outcome
	err error
}

// Model is the terminal front end of a Session.
type Model struct {
	session    *Session
	reportOpts deviation.ReportOptions

	input   textinput.Model
	picker  filepicker.Model
	spinner spinner.Model

	phase     phase
	first     string
	report    string
	viewerURL string
	cancel    context.CancelFunc
}

// NewModel returns a model that browses for exports starting in dir.
func NewModel(session *Session, dir string, reportOpts deviation.ReportOptions) Model {
	in := textinput.New()
	in.Placeholder = "e.g. 0.5"
	in.Prompt = "Threshold: "
	in.CharLimit = 32
	in.Width = 20
	in.SetValue(session.ThresholdText())
	in.Focus()

	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv"}
	fp.CurrentDirectory = dir

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	reportOpts.Color = false
	return Model{
		session:    session,
		reportOpts: reportOpts,
		input:      in,
		picker:     fp,
		spinner:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case ViewerReadyMsg:
		m.viewerURL = msg.URL
		return m, nil
	case runDoneMsg:
		return m.finish(msg), textinput.Blink
	}

	switch m.phase {
	case phaseThreshold:
		return m.updateThreshold(msg)
	case phasePickFirst, phasePickSecond:
		return m.updatePicker(msg)
	case phaseRunning:
		return m.updateRunning(msg)
	}
	return m, nil
}

func (m Model) updateThreshold(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if err := m.session.EnterThreshold(m.input.Value()); err != nil {
				return m, nil
			}
			m.report = ""
			m.phase = phasePickFirst
			m.input.Blur()
			return m, m.picker.Init()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.session.Cancel()
		return m.backToThreshold(), textinput.Blink
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		return m.selected(path)
	}
	return m, cmd
}

// selected advances past a picker once the operator chose path.
func (m Model) selected(path string) (tea.Model, tea.Cmd) {
	if m.phase == phasePickFirst {
		m.first = path
		m.phase = phasePickSecond
		return m, nil
	}
	if err := m.session.SelectFiles(m.first, path); err != nil {
		return m.backToThreshold(), textinput.Blink
	}
	return m.start()
}

func (m Model) start() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.phase = phaseRunning
	m.viewerURL = ""
	session := m.session
	run := func() tea.Msg {
		out, err := session.Process(ctx)
		return runDoneMsg{out: out, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m Model) updateRunning(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && m.cancel != nil {
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) finish(done runDoneMsg) Model {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.report = ""
	if done.err == nil && done.out != nil && done.out.Result != nil {
		var b strings.Builder
		if err := deviation.Report(&b, done.out.Result.Summary, m.reportOpts); err == nil {
			m.report = strings.TrimRight(b.String(), "\n")
		}
	}
	return m.backToThreshold()
}

func (m Model) backToThreshold() Model {
	m.phase = phaseThreshold
	m.first = ""
	m.viewerURL = ""
	m.input.SetValue(m.session.ThresholdText())
	m.input.Focus()
	return m
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("pointdiff"))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseThreshold:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.statusLine())
		if m.report != "" {
			b.WriteString("\n")
			b.WriteString(reportStyle.Render(m.report))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter: choose files • esc: quit"))
	case phasePickFirst, phasePickSecond:
		which := "first"
		if m.phase == phasePickSecond {
			which = "second"
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("Select the %s CSV export:", which)))
		b.WriteString("\n")
		if m.first != "" {
			b.WriteString(labelStyle.Render("first: " + m.first))
			b.WriteString("\n")
		}
		b.WriteString(m.picker.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter: select • esc: cancel"))
	case phaseRunning:
		if m.viewerURL != "" {
			b.WriteString(okStyle.Render("Showing " + m.viewerURL))
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("press enter to close"))
		} else {
			b.WriteString(m.spinner.View())
			b.WriteString(" Processing...")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusLine() string {
	status := m.session.Status()
	switch {
	case status == "":
		return ""
	case status == MsgComplete:
		return okStyle.Render(status)
	default:
		return errorStyle.Render(status)
	}
}
