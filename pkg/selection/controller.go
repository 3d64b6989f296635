package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/formless/pkg/field"
	"github.com/entrhq/formless/pkg/fill"
	"github.com/entrhq/formless/pkg/logging"
	"github.com/entrhq/formless/pkg/matching"
)

// NoFieldsNotice is shown when a page session finds nothing to fill.
const NoFieldsNotice = "No fillable fields found on this page."

var debugLog = logging.MustLogger("selection")

// FieldSource supplies the fields a session targets. overlay.Manager and
// ResolverSource implement it.
type FieldSource interface {
	Lookup(id string) (field.Field, bool)
	Discover() ([]field.Field, error)
	NameOf(f field.Field) string
}

// Notifier is the user-visible surface. Empty matches never reach it.
type Notifier interface {
	Notice(msg string)
	Error(err error)
}

type nopNotifier struct{}

func (nopNotifier) Notice(string) {}
func (nopNotifier) Error(error)   {}

// Controller owns the single active session of a page.
type Controller struct {
	mu sync.Mutex

	source   FieldSource
	matcher  matching.Matcher
	exec     *fill.Executor
	notifier Notifier

	active *Session
	nextID uint64
}

func NewController(source FieldSource, matcher matching.Matcher, exec *fill.Executor, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Controller{
		source:   source,
		matcher:  matcher,
		exec:     exec,
		notifier: notifier,
	}
}

// OpenField starts a single-field session, closing any previous one.
func (c *Controller) OpenField(id string) (*Session, error) {
	f, ok := c.source.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	s := newSingle(c.nextID, f)
	c.replaceLocked(s)
	debugLog.Debugf("opened session %d for %s (%s)", s.id, f.ID, f.Label)
	return s, nil
}

// OpenPage starts a batch session over every eligible field.
func (c *Controller) OpenPage() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	s := newBatch(c.nextID)
	c.replaceLocked(s)
	debugLog.Debugf("opened page session %d", s.id)
	return s
}

// Active returns the open session, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Close ends s. A request still in flight for it will be dropped on arrival.
func (c *Controller) Close(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked(s)
}

// Busy reports whether s has a matching request in flight.
func (c *Controller) Busy(s *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.busy
}

// Confirm gathers the session's fields, issues one matching request and
// writes the result back. The session ends in every case. Only a matching
// failure is returned as an error; it is also reported to the Notifier.
func (c *Controller) Confirm(ctx context.Context, s *Session) (Outcome, error) {
	c.mu.Lock()
	if s.closed || c.active != s {
		c.mu.Unlock()
		return Outcome{}, ErrSessionClosed
	}
	if s.busy {
		c.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	s.busy = true
	mode, fieldID := s.mode, s.fieldID
	prompt, pageContext, scope := s.Prompt, s.Context, s.Scope
	c.mu.Unlock()

	out := Outcome{Mode: mode}

	fields, err := c.targets(mode, fieldID)
	if err != nil || len(fields) == 0 {
		c.finish(s)
		if mode == ModeBatch {
			c.notifier.Notice(NoFieldsNotice)
		} else {
			out.Report = fill.Report{Results: []fill.Result{{
				FieldID: fieldID,
				Label:   s.label,
				Status:  fill.StatusSkipped,
				Err:     fmt.Errorf("%w: %s", fill.ErrDetached, fieldID),
			}}}
		}
		if err != nil {
			debugLog.Warnf("session %d: gathering fields failed: %v", s.id, err)
		}
		return out, nil
	}

	req := matching.Request{
		ParsedFields:  labelsOf(fields),
		MemoryIntents: scope.Intents(),
		Context:       pageContext,
	}
	if prompt != "" {
		req.UserPrompts = make(map[string]string, len(req.ParsedFields))
		for _, l := range req.ParsedFields {
			req.UserPrompts[l] = prompt
		}
	}
	out.Labels = req.ParsedFields

	debugLog.Debugf("session %d: matching %d label(s), scope %s", s.id, len(req.ParsedFields), scope)
	resp, err := c.matcher.Match(ctx, req)

	c.mu.Lock()
	s.busy = false
	if s.closed || c.active != s {
		c.mu.Unlock()
		debugLog.Debugf("session %d: dropping response for closed session", s.id)
		out.Dropped = true
		return out, nil
	}
	c.endLocked(s)
	c.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("selection: matching failed: %w", err)
		debugLog.Errorf("session %d: %v", s.id, err)
		c.notifier.Error(err)
		return out, err
	}

	for _, l := range req.ParsedFields {
		if resp.Value(l) != "" {
			out.Matched++
		}
	}
	out.Report = c.exec.FillAll(fields, resp.MatchedFields)
	debugLog.Infof("session %d: filled %d of %d field(s)", s.id, out.Report.Filled(), len(fields))
	return out, nil
}

// targets resolves the session's fields with their current labels.
func (c *Controller) targets(mode Mode, fieldID string) ([]field.Field, error) {
	if mode == ModeBatch {
		return c.source.Discover()
	}
	f, ok := c.source.Lookup(fieldID)
	if !ok || f.Stale() {
		return nil, nil
	}
	f.Label = c.source.NameOf(f)
	return []field.Field{f}, nil
}

// finish ends s after a Confirm that never reached the matching service.
func (c *Controller) finish(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.busy = false
	c.endLocked(s)
}

func (c *Controller) replaceLocked(s *Session) {
	if c.active != nil {
		c.active.closed = true
	}
	c.active = s
}

func (c *Controller) endLocked(s *Session) {
	s.closed = true
	if c.active == s {
		c.active = nil
	}
}

func labelsOf(fields []field.Field) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f.Label] {
			seen[f.Label] = true
			out = append(out, f.Label)
		}
	}
	return out
}
