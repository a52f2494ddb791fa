package shell

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointdiff/internal/deviation"
)

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func newTestModel(t *testing.T) (Model, *Session, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	s := NewSession(newPipeline(scenarioFS(), r))
	return NewModel(s, t.TempDir(), deviation.ReportOptions{}), s, r
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModel_InvalidThresholdStaysOnInput(t *testing.T) {
	m, s, _ := newTestModel(t)
	m.input.SetValue("abc")

	m, _ = update(t, m, key(tea.KeyEnter))
	assert.Equal(t, phaseThreshold, m.phase)
	assert.Equal(t, Idle, s.State())
	assert.Contains(t, m.View(), MsgInvalidThreshold)
}

func TestModel_ValidThresholdOpensPicker(t *testing.T) {
	m, s, _ := newTestModel(t)
	m.input.SetValue("1")

	m, cmd := update(t, m, key(tea.KeyEnter))
	assert.Equal(t, phasePickFirst, m.phase)
	assert.Equal(t, ThresholdEntered, s.State())
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Select the first CSV export")
}

func TestModel_EscInPickerCancels(t *testing.T) {
	m, s, r := newTestModel(t)
	m.input.SetValue("1")
	m, _ = update(t, m, key(tea.KeyEnter))
	next, _ := m.selected("a.csv")
	m = next.(Model)
	assert.Equal(t, phasePickSecond, m.phase)

	m, _ = update(t, m, key(tea.KeyEsc))
	assert.Equal(t, phaseThreshold, m.phase)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, "1", m.input.Value())
	assert.Contains(t, m.View(), MsgSelectBothFiles)
	assert.Zero(t, r.calls())
}

func TestModel_RunAndReport(t *testing.T) {
	m, s, r := newTestModel(t)
	m.input.SetValue("1")
	m, _ = update(t, m, key(tea.KeyEnter))

	next, cmd := m.selected("a.csv")
	m = next.(Model)
	next, cmd = m.selected("b.csv")
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, phaseRunning, m.phase)
	assert.Equal(t, FilesSelected, s.State())
	assert.Contains(t, m.View(), "Processing...")

	out, err := s.Process(context.Background())
	require.NoError(t, err)
	m, _ = update(t, m, runDoneMsg{out: out})

	assert.Equal(t, phaseThreshold, m.phase)
	assert.Nil(t, m.cancel)
	assert.Equal(t, 1, r.calls())
	view := m.View()
	assert.Contains(t, view, MsgComplete)
	assert.Contains(t, view, "points exceeding threshold: 1")
	assert.Equal(t, "1", m.input.Value())
}

func TestModel_EnterClosesViewer(t *testing.T) {
	m, _, _ := newTestModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	m.phase = phaseRunning
	m.cancel = cancel

	m, _ = update(t, m, ViewerReadyMsg{URL: "http://127.0.0.1:1234/"})
	assert.Contains(t, m.View(), "http://127.0.0.1:1234/")

	m, _ = update(t, m, key(tea.KeyEnter))
	assert.Error(t, ctx.Err())
	assert.Equal(t, phaseRunning, m.phase)
}

func TestModel_QuitKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := update(t, m, key(tea.KeyEsc))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = update(t, m, key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
