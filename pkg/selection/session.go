// Package selection runs one user-initiated fill: it gathers the target
// fields, asks the matching service for values, and writes them back.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/formless/pkg/field"
	"github.com/entrhq/formless/pkg/fill"
)

var (
	// ErrBusy is returned when a session is confirmed while its matching
	// request is still in flight.
	ErrBusy = errors.New("selection: request already in flight")

	// ErrSessionClosed is returned when confirming a session that is no
	// longer the active one.
	ErrSessionClosed = errors.New("selection: session closed")

	// ErrUnknownField is returned when opening a session for an untracked field.
	ErrUnknownField = errors.New("selection: unknown field")
)

// Mode is single-field or whole-page.
type Mode int

const (
	ModeSingle Mode = iota
	ModeBatch
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeBatch:
		return "batch"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Scope restricts which memory intents the matching service may use.
// The zero value is unrestricted.
type Scope struct {
	intents []string
	limited bool
}

// AllMemories is the unrestricted scope.
func AllMemories() Scope {
	return Scope{}
}

// Only restricts matching to the given intents. Only() with no intents
// allows nothing.
func Only(intents ...string) Scope {
	return Scope{intents: append([]string{}, intents...), limited: true}
}

// All reports whether the scope is unrestricted.
func (s Scope) All() bool {
	return !s.limited
}

// Intents returns the allowed intents, or nil when unrestricted.
func (s Scope) Intents() []string {
	if !s.limited {
		return nil
	}
	return append([]string{}, s.intents...)
}

func (s Scope) String() string {
	if !s.limited {
		return "all"
	}
	return strings.Join(s.intents, ", ")
}

// Session is one fill transaction. Prompt, Context and Scope are edited by
// the UI before Confirm; the rest is owned by the Controller.
type Session struct {
	id      uint64
	mode    Mode
	fieldID string
	label   string

	Prompt  string
	Context string
	Scope   Scope

	// guarded by Controller.mu
	closed bool
	busy   bool
}

// Mode returns whether the session targets one field or the whole page.
func (s *Session) Mode() Mode {
	return s.mode
}

// FieldID returns the target field in single mode.
func (s *Session) FieldID() string {
	return s.fieldID
}

// Label returns the target field's label as of opening, in single mode.
func (s *Session) Label() string {
	return s.label
}

// Outcome describes how a confirmed session ended.
type Outcome struct {
	Mode Mode

	// Labels sent to the matching service.
	Labels []string

	// Matched is the number of labels that came back with a value.
	Matched int

	Report fill.Report

	// Dropped is set when the session was closed while the request was in
	// flight; the page was not touched.
	Dropped bool
}

// Empty reports whether nothing was written.
func (o Outcome) Empty() bool {
	return o.Report.Filled() == 0
}

func newSingle(id uint64, f field.Field) *Session {
	return &Session{id: id, mode: ModeSingle, fieldID: f.ID, label: f.Label}
}

func newBatch(id uint64) *Session {
	return &Session{id: id, mode: ModeBatch}
}
