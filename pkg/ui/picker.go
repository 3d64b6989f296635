// Package ui is the terminal picker that drives one selection session: the
// user narrows the memory scope, optionally adds a prompt and context, then
// confirms. The picker stays open, with its trigger disabled, until the
// matching request settles.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/formless/pkg/memory"
	"github.com/entrhq/formless/pkg/selection"
)

// ErrCancelled is returned by Run when the user backs out.
var ErrCancelled = errors.New("ui: cancelled")

// Confirmer is the part of selection.Controller the picker needs.
type Confirmer interface {
	Confirm(ctx context.Context, s *selection.Session) (selection.Outcome, error)
	Close(s *selection.Session)
}

type focusArea int

const (
	focusScope focusArea = iota
	focusPrompt
	focusContext
	focusCount
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	Next    key.Binding
	Prev    key.Binding
	Confirm key.Binding
	Submit  key.Binding
	Cancel  key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all memories")),
	Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "fill")),
	Submit:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "fill")),
	Cancel:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// confirmedMsg carries the settled matching request back into Update.
type confirmedMsg struct {
	outcome selection.Outcome
	err     error
}

// Picker is the bubbletea model for one session.
type Picker struct {
	ctx     context.Context
	ctrl    Confirmer
	session *selection.Session

	intents  []string
	selected map[string]bool
	cursor   int
	focus    focusArea

	prompt  textinput.Model
	context textarea.Model
	spinner spinner.Model

	width     int
	busy      bool
	done      bool
	cancelled bool
	outcome   selection.Outcome
	err       error
}

// NewPicker builds a picker for session. memories populates the scope list;
// duplicate intents are listed once.
func NewPicker(ctx context.Context, ctrl Confirmer, session *selection.Session, memories []memory.Record) *Picker {
	prompt := textinput.New()
	prompt.Placeholder = "Optional instruction, e.g. keep it formal"
	prompt.CharLimit = 500

	ctxArea := textarea.New()
	ctxArea.Placeholder = "Optional context passed to prompt memories"
	ctxArea.SetHeight(3)
	ctxArea.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = checkedStyle

	return &Picker{
		ctx:      ctx,
		ctrl:     ctrl,
		session:  session,
		intents:  memory.Intents(memories),
		selected: make(map[string]bool),
		prompt:   prompt,
		context:  ctxArea,
		spinner:  sp,
		width:    80,
	}
}

func (p *Picker) Init() tea.Cmd {
	return nil
}

func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.context.SetWidth(max(20, msg.Width-6))
		return p, nil

	case confirmedMsg:
		p.busy = false
		p.done = true
		p.outcome = msg.outcome
		p.err = msg.err
		return p, tea.Quit

	case spinner.TickMsg:
		if !p.busy {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return p, p.forward(msg)
}

func (p *Picker) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Cancel) {
		return p.cancel()
	}
	// The trigger stays disabled while a request is in flight.
	if p.busy || p.done {
		return p, nil
	}

	switch {
	case key.Matches(msg, keys.Submit):
		return p.confirm()
	case key.Matches(msg, keys.Next):
		return p, p.setFocus((p.focus + 1) % focusCount)
	case key.Matches(msg, keys.Prev):
		return p, p.setFocus((p.focus + focusCount - 1) % focusCount)
	}

	switch p.focus {
	case focusScope:
		switch {
		case key.Matches(msg, keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keys.Down):
			if p.cursor < len(p.intents)-1 {
				p.cursor++
			}
		case key.Matches(msg, keys.Toggle):
			if len(p.intents) > 0 {
				intent := p.intents[p.cursor]
				p.selected[intent] = !p.selected[intent]
			}
		case key.Matches(msg, keys.All):
			p.selected = make(map[string]bool)
		case key.Matches(msg, keys.Confirm):
			return p.confirm()
		}
		return p, nil

	case focusPrompt:
		if key.Matches(msg, keys.Confirm) {
			return p.confirm()
		}
	}
	return p, p.forward(msg)
}

// forward routes a message to the focused text component.
func (p *Picker) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch p.focus {
	case focusPrompt:
		p.prompt, cmd = p.prompt.Update(msg)
	case focusContext:
		p.context, cmd = p.context.Update(msg)
	}
	return cmd
}

func (p *Picker) setFocus(f focusArea) tea.Cmd {
	p.focus = f
	p.prompt.Blur()
	p.context.Blur()
	switch f {
	case focusPrompt:
		return p.prompt.Focus()
	case focusContext:
		return p.context.Focus()
	}
	return nil
}

// Scope returns the scope as currently selected: every memory when nothing
// is ticked.
func (p *Picker) Scope() selection.Scope {
	var intents []string
	for _, intent := range p.intents {
		if p.selected[intent] {
			intents = append(intents, intent)
		}
	}
	if len(intents) == 0 {
		return selection.AllMemories()
	}
	return selection.Only(intents...)
}

func (p *Picker) confirm() (tea.Model, tea.Cmd) {
	p.session.Prompt = strings.TrimSpace(p.prompt.Value())
	p.session.Context = strings.TrimSpace(p.context.Value())
	p.session.Scope = p.Scope()
	p.busy = true

	ctx, ctrl, s := p.ctx, p.ctrl, p.session
	run := func() tea.Msg {
		outcome, err := ctrl.Confirm(ctx, s)
		return confirmedMsg{outcome: outcome, err: err}
	}
	return p, tea.Batch(p.spinner.Tick, run)
}

// cancel closes the session. A request already in flight is left to settle;
// the controller drops its response.
func (p *Picker) cancel() (tea.Model, tea.Cmd) {
	if !p.done {
		p.ctrl.Close(p.session)
		p.cancelled = true
		p.done = true
	}
	return p, tea.Quit
}

// Busy reports whether a confirmation is in flight.
func (p *Picker) Busy() bool { return p.busy }

// Result returns the settled outcome. Before settling it returns ErrCancelled
// if the user backed out, otherwise a zero outcome.
func (p *Picker) Result() (selection.Outcome, error) {
	if p.cancelled {
		return selection.Outcome{}, ErrCancelled
	}
	return p.outcome, p.err
}

func (p *Picker) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(p.heading()))
	sb.WriteString("\n\n")

	sb.WriteString(p.sectionTitle(focusScope, "Memories"))
	sb.WriteString(subtitleStyle.Render("  scope: " + p.Scope().String()))
	sb.WriteString("\n")
	sb.WriteString(p.renderScope())
	sb.WriteString("\n")

	sb.WriteString(p.sectionTitle(focusPrompt, "Prompt"))
	sb.WriteString("\n")
	sb.WriteString(p.prompt.View())
	sb.WriteString("\n\n")

	sb.WriteString(p.sectionTitle(focusContext, "Context"))
	sb.WriteString("\n")
	sb.WriteString(p.context.View())
	sb.WriteString("\n\n")

	switch {
	case p.busy:
		sb.WriteString(p.spinner.View() + " Matching...")
	case p.done && p.err != nil:
		sb.WriteString(errorStyle.Render("Error: " + p.err.Error()))
	case p.done && !p.cancelled:
		sb.WriteString(successStyle.Render(Summary(p.outcome)))
	default:
		sb.WriteString(helpStyle.Render(helpLine()))
	}

	width := p.width - 2
	if width < 40 {
		width = 40
	}
	return frameStyle.Width(width).Render(sb.String())
}

func (p *Picker) heading() string {
	if p.session.Mode() == selection.ModeSingle {
		return fmt.Sprintf("Fill %q", p.session.Label())
	}
	return "Fill all fields on this page"
}

func (p *Picker) sectionTitle(f focusArea, title string) string {
	if p.focus == f {
		return focusedSectionStyle.Render(title)
	}
	return sectionStyle.Render(title)
}

func (p *Picker) renderScope() string {
	if len(p.intents) == 0 {
		return subtitleStyle.Render("  (no memories saved)") + "\n"
	}
	var sb strings.Builder
	for i, intent := range p.intents {
		box := "[ ]"
		if p.selected[intent] {
			box = checkedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s", box, intent)
		if p.focus == focusScope && i == p.cursor {
			line = cursorRowStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func helpLine() string {
	bindings := []key.Binding{keys.Toggle, keys.All, keys.Next, keys.Confirm, keys.Submit, keys.Cancel}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Run shows the picker until the session settles or the user cancels.
func Run(ctx context.Context, ctrl Confirmer, session *selection.Session, memories []memory.Record, opts ...tea.ProgramOption) (selection.Outcome, error) {
	p := NewPicker(ctx, ctrl, session, memories)
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(p, opts...).Run(); err != nil {
		if ctx.Err() != nil {
			return selection.Outcome{}, ctx.Err()
		}
		return selection.Outcome{}, fmt.Errorf("ui: picker failed: %w", err)
	}
	return p.Result()
}
