package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/formless/pkg/fill"
	"github.com/entrhq/formless/pkg/memory"
	"github.com/entrhq/formless/pkg/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfirmer struct {
	outcome selection.Outcome
	err     error

	confirmed []*selection.Session
	closed    []*selection.Session
}

func (f *fakeConfirmer) Confirm(_ context.Context, s *selection.Session) (selection.Outcome, error) {
	f.confirmed = append(f.confirmed, s)
	return f.outcome, f.err
}

func (f *fakeConfirmer) Close(s *selection.Session) {
	f.closed = append(f.closed, s)
}

func testMemories() []memory.Record {
	return []memory.Record{
		{ID: "1", Intent: "email", Value: "a@b.com", Type: memory.TypeText},
		{ID: "2", Intent: "name", Value: "Ada", Type: memory.TypeText},
		{ID: "3", Intent: "email", Value: "other@b.com", Type: memory.TypeText},
		{ID: "4", Intent: "bio", Value: "Write a short bio", Type: memory.TypePrompt},
	}
}

func newTestPicker(t *testing.T, fc *fakeConfirmer) *Picker {
	t.Helper()
	session := selection.NewController(nil, nil, nil, nil).OpenPage()
	return NewPicker(context.Background(), fc, session, testMemories())
}

func press(p *Picker, keys ...string) tea.Cmd {
	var last tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, last = p.Update(msg)
	}
	return last
}

func typeText(p *Picker, text string) {
	for _, r := range text {
		p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// settle runs the confirm command and feeds its result back.
func settle(t *testing.T, p *Picker, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	var msgs []tea.Msg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			if c != nil {
				msgs = append(msgs, c())
			}
		}
	default:
		msgs = append(msgs, msg)
	}
	for _, msg := range msgs {
		if m, ok := msg.(confirmedMsg); ok {
			p.Update(m)
			return
		}
	}
	t.Fatal("confirm command produced no result")
}

func TestPicker_ScopeDefaultsToAll(t *testing.T) {
	p := newTestPicker(t, &fakeConfirmer{})
	assert.Equal(t, []string{"email", "name", "bio"}, p.intents)
	assert.True(t, p.Scope().All())
}

func TestPicker_ToggleScope(t *testing.T) {
	p := newTestPicker(t, &fakeConfirmer{})

	press(p, "space", "down", "down", "space")
	assert.Equal(t, []string{"email", "bio"}, p.Scope().Intents())

	press(p, "space")
	assert.Equal(t, []string{"email"}, p.Scope().Intents())

	press(p, "a")
	assert.True(t, p.Scope().All())
}

func TestPicker_ConfirmAppliesInputs(t *testing.T) {
	fc := &fakeConfirmer{outcome: selection.Outcome{
		Mode:    selection.ModeBatch,
		Labels:  []string{"Email", "Name"},
		Matched: 1,
		Report: fill.Report{Results: []fill.Result{
			{Label: "Email", Status: fill.StatusFilled},
			{Label: "Name", Status: fill.StatusEmpty},
		}},
	}}
	p := newTestPicker(t, fc)

	press(p, "down", "space", "tab")
	typeText(p, " be brief ")
	press(p, "tab")
	typeText(p, "job application")

	cmd := press(p, "ctrl+s")
	assert.True(t, p.Busy())

	// The trigger is disabled while the request is in flight.
	assert.Nil(t, press(p, "ctrl+s"))

	settle(t, p, cmd)
	assert.False(t, p.Busy())
	require.Len(t, fc.confirmed, 1)

	s := fc.confirmed[0]
	assert.Equal(t, "be brief", s.Prompt)
	assert.Equal(t, "job application", s.Context)
	assert.Equal(t, []string{"name"}, s.Scope.Intents())

	outcome, err := p.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Report.Filled())
	assert.Contains(t, p.View(), "Filled 1 of 2 fields.")
}

func TestPicker_EnterConfirmsFromScope(t *testing.T) {
	fc := &fakeConfirmer{}
	p := newTestPicker(t, fc)

	settle(t, p, press(p, "enter"))
	require.Len(t, fc.confirmed, 1)
	assert.True(t, fc.confirmed[0].Scope.All())
}

func TestPicker_Error(t *testing.T) {
	fc := &fakeConfirmer{err: errors.New("selection: matching failed: boom")}
	p := newTestPicker(t, fc)

	settle(t, p, press(p, "enter"))
	_, err := p.Result()
	assert.EqualError(t, err, "selection: matching failed: boom")
	assert.Contains(t, p.View(), "boom")
}

func TestPicker_Cancel(t *testing.T) {
	fc := &fakeConfirmer{}
	p := newTestPicker(t, fc)

	press(p, "esc")
	require.Len(t, fc.closed, 1)
	assert.Empty(t, fc.confirmed)

	_, err := p.Result()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestPicker_ViewListsMemories(t *testing.T) {
	p := newTestPicker(t, &fakeConfirmer{})
	view := p.View()
	for _, want := range []string{"Fill all fields on this page", "email", "name", "bio", "scope: all"} {
		assert.True(t, strings.Contains(view, want), "view missing %q", want)
	}

	empty := NewPicker(context.Background(), &fakeConfirmer{}, selection.NewController(nil, nil, nil, nil).OpenPage(), nil)
	assert.Contains(t, empty.View(), "no memories saved")
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name    string
		outcome selection.Outcome
		want    string
	}{
		{
			name:    "dropped",
			outcome: selection.Outcome{Dropped: true},
			want:    "Session closed before the response arrived; nothing was filled.",
		},
		{
			name:    "no fields",
			outcome: selection.Outcome{Mode: selection.ModeBatch},
			want:    "Nothing to fill.",
		},
		{
			name: "no match",
			outcome: selection.Outcome{
				Labels: []string{"Email"},
				Report: fill.Report{Results: []fill.Result{{Label: "Email", Status: fill.StatusEmpty}}},
			},
			want: "No matching memories found.",
		},
		{
			name: "single",
			outcome: selection.Outcome{
				Mode:   selection.ModeSingle,
				Labels: []string{"Email"},
				Report: fill.Report{Results: []fill.Result{{Label: "Email", Status: fill.StatusFilled}}},
			},
			want: `Filled "Email".`,
		},
		{
			name: "batch with skips and failures",
			outcome: selection.Outcome{
				Mode:   selection.ModeBatch,
				Labels: []string{"A", "B", "C", "D"},
				Report: fill.Report{Results: []fill.Result{
					{Label: "A", Status: fill.StatusFilled},
					{Label: "B", Status: fill.StatusSkipped},
					{Label: "C", Status: fill.StatusFailed},
					{Label: "D", Status: fill.StatusFilled},
				}},
			},
			want: "Filled 2 of 4 fields. 1 skipped. 1 failed.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.outcome))
		})
	}
}

func TestDetails(t *testing.T) {
	out := Details(selection.Outcome{Report: fill.Report{Results: []fill.Result{
		{Label: "Email", Status: fill.StatusFilled},
		{Label: "Color", Status: fill.StatusFailed, Err: fill.ErrNoOption},
	}}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "filled   Email", lines[0])
	assert.Contains(t, lines[1], "Color")
	assert.Contains(t, lines[1], fill.ErrNoOption.Error())
}
