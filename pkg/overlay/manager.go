// Package overlay injects one fill affordance per discovered field and keeps
// the set in step with the page as it mutates, scrolls and resizes.
package overlay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/formless/pkg/dom"
	"github.com/entrhq/formless/pkg/field"
	"github.com/entrhq/formless/pkg/logging"
)

// ErrNotActive is returned by operations that need an enabled overlay.
var ErrNotActive = errors.New("overlay: not active")

// NoFieldsNotice is shown when a scan finds nothing to fill.
const NoFieldsNotice = "No fillable fields found on this page."

var debugLog = logging.MustLogger("overlay")

// State is the manager lifecycle state.
type State int

const (
	Disabled State = iota
	Enabling
	Active
	Disabling
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabling:
		return "enabling"
	case Active:
		return "active"
	case Disabling:
		return "disabling"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options tunes affordance geometry and viewport debouncing.
type Options struct {
	ButtonSize    float64
	Margin        float64
	FarMargin     float64
	DebounceDelay time.Duration
}

// DefaultOptions returns the stock geometry and a 100ms debounce.
func DefaultOptions() Options {
	return Options{
		ButtonSize:    24,
		Margin:        4,
		FarMargin:     200,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// Notifier receives user-facing notices.
type Notifier interface {
	Notice(msg string)
}

// Manager owns the affordances of one document.
type Manager struct {
	mu sync.Mutex

	doc      dom.Document
	adapters []field.Adapter
	opts     Options
	notifier Notifier

	// onActivate runs, without the lock, when an affordance is clicked.
	onActivate func(field.Field)

	state     State
	resolver  *field.Resolver
	registry  *Registry
	watches   *watchSet
	debouncer *debouncer
}

// NewManager creates a disabled manager. With no adapters the field
// package defaults are used.
func NewManager(doc dom.Document, opts Options, notifier Notifier, adapters ...field.Adapter) *Manager {
	if len(adapters) == 0 {
		adapters = field.DefaultAdapters()
	}
	m := &Manager{
		doc:      doc,
		adapters: adapters,
		opts:     opts,
		notifier: notifier,
		registry: NewRegistry(),
		watches:  newWatchSet(),
	}
	m.debouncer = newDebouncer(opts.DebounceDelay, m.repositionAll)
	return m
}

// OnActivate sets the callback run when an affordance is clicked.
func (m *Manager) OnActivate(fn func(field.Field)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onActivate = fn
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Enable scans the document, injects affordances and starts the watchers.
// On failure everything acquired so far is released and the manager stays
// disabled. Enabling an active manager is a no-op.
func (m *Manager) Enable() (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Active:
		return nil
	case Enabling, Disabling:
		return fmt.Errorf("overlay: cannot enable while %s", m.state)
	}
	m.state = Enabling

	defer func() {
		if err != nil {
			if terr := m.teardownLocked(); terr != nil {
				debugLog.Warnf("teardown after failed enable: %v", terr)
			}
			m.state = Disabled
		}
	}()

	m.resolver, err = field.NewResolver(m.doc, m.adapters...)
	if err != nil {
		return fmt.Errorf("overlay: %w", err)
	}

	added, err := m.scanLocked()
	if err != nil {
		return err
	}

	mut, err := m.doc.ObserveMutations(field.TextControlSelector, m.onMutation)
	if err != nil {
		return fmt.Errorf("overlay: failed to watch mutations: %w", err)
	}
	m.watches.add(pageOwner, mut)

	vp, err := m.doc.ObserveViewport(func(dom.ViewportEvent) { m.debouncer.Trigger() })
	if err != nil {
		return fmt.Errorf("overlay: failed to watch viewport: %w", err)
	}
	m.watches.add(pageOwner, vp)

	m.state = Active
	debugLog.Infof("enabled on %s with %s adapter, %d fields", m.doc.URL(), m.resolver.Adapter().Tag(), added)

	if added == 0 && m.notifier != nil {
		m.notifier.Notice(NoFieldsNotice)
	}
	return nil
}

// Disable removes every affordance and releases every watcher.
func (m *Manager) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Disabled {
		return nil
	}
	m.state = Disabling
	m.debouncer.Stop()
	err := m.teardownLocked()
	m.resolver = nil
	m.state = Disabled
	debugLog.Infof("disabled on %s", m.doc.URL())
	return err
}

// Len returns the number of tracked affordances.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Len()
}

// Watchers returns the number of live subscriptions held by the manager.
func (m *Manager) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watches.len()
}

// Affordances returns a snapshot of the tracked affordances.
func (m *Manager) Affordances() []Affordance {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.registry.All()
	out := make([]Affordance, len(all))
	for i, a := range all {
		out[i] = *a
	}
	return out
}

// Affordance returns a snapshot of the affordance for id.
func (m *Manager) Affordance(id string) (Affordance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.registry.Get(id)
	if !ok {
		return Affordance{}, false
	}
	return *a, true
}

// Rescan picks up fields added since the last scan.
func (m *Manager) Rescan() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active {
		return 0, ErrNotActive
	}
	m.retireDetachedLocked()
	return m.scanLocked()
}

// Lookup returns the tracked field for id.
func (m *Manager) Lookup(id string) (field.Field, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.registry.Get(id)
	if !ok {
		return field.Field{}, false
	}
	return a.Field, true
}

// Discover returns the currently eligible fields through the pinned adapter.
func (m *Manager) Discover() ([]field.Field, error) {
	r, err := m.activeResolver()
	if err != nil {
		return nil, err
	}
	return r.Discover()
}

// NameOf returns the field's current label through the pinned adapter.
func (m *Manager) NameOf(f field.Field) string {
	r, err := m.activeResolver()
	if err != nil {
		return f.Label
	}
	return r.NameOf(f.Element)
}

func (m *Manager) activeResolver() (*field.Resolver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active || m.resolver == nil {
		return nil, ErrNotActive
	}
	return m.resolver, nil
}

// scanLocked attaches an affordance to every eligible field not yet
// tracked and returns how many were added.
func (m *Manager) scanLocked() (int, error) {
	fields, err := m.resolver.Discover()
	if err != nil {
		return 0, fmt.Errorf("overlay: scan failed: %w", err)
	}

	added := 0
	for _, f := range fields {
		if m.registry.Has(f.ID) {
			continue
		}
		if err := m.attachLocked(f); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (m *Manager) attachLocked(f field.Field) error {
	btn, err := m.doc.CreateElement("button", map[string]string{
		dom.OverlayAttr: "affordance",
		dom.FieldAttr:   f.ID,
		"type":          "button",
		"aria-label":    "Fill " + f.Label,
		"style":         buttonStyle(Position{}, m.opts.ButtonSize),
	})
	if err != nil {
		return fmt.Errorf("overlay: failed to inject affordance for %s: %w", f.ID, err)
	}

	a := &Affordance{Field: f, button: btn}
	if err := m.registry.Insert(a); err != nil {
		_ = btn.Remove()
		return err
	}

	id := f.ID
	inter, err := m.doc.ObserveIntersection(f.Element, func(e dom.IntersectionEntry) { m.onIntersection(id, e) })
	if err != nil {
		m.detachLocked(id)
		return fmt.Errorf("overlay: failed to watch %s: %w", id, err)
	}
	m.watches.add(id, inter)

	click, err := m.doc.ObserveClicks(btn, func() { m.onClick(id) })
	if err != nil {
		m.detachLocked(id)
		return fmt.Errorf("overlay: failed to watch clicks on %s: %w", id, err)
	}
	m.watches.add(id, click)

	m.positionLocked(a)
	return nil
}

// detachLocked removes the affordance for id and releases its watchers.
func (m *Manager) detachLocked(id string) {
	if err := m.watches.release(id); err != nil {
		debugLog.Warnf("releasing watchers of %s: %v", id, err)
	}
	a, ok := m.registry.Remove(id)
	if !ok {
		return
	}
	if err := a.button.Remove(); err != nil {
		debugLog.Warnf("removing affordance of %s: %v", id, err)
	}
}

// retireDetachedLocked drops every affordance whose field left the document.
func (m *Manager) retireDetachedLocked() int {
	retired := 0
	for _, a := range m.registry.All() {
		if a.Field.Stale() {
			debugLog.Debugf("field %s detached, retiring affordance", a.Field.ID)
			m.detachLocked(a.Field.ID)
			retired++
		}
	}
	return retired
}

func (m *Manager) teardownLocked() error {
	for _, a := range m.registry.All() {
		m.detachLocked(a.Field.ID)
	}
	return m.watches.releaseAll()
}

func (m *Manager) positionLocked(a *Affordance) {
	box, err := a.Field.Element.Box()
	if err != nil {
		debugLog.Warnf("reading box of %s: %v", a.Field.ID, err)
		box = dom.Rect{}
	}
	vp, err := m.doc.Viewport()
	if err != nil {
		debugLog.Warnf("reading viewport: %v", err)
	}
	m.applyLocked(a, Place(box, vp, m.opts))
}

func (m *Manager) applyLocked(a *Affordance, p Position) {
	a.Top, a.Left, a.Visible = p.Top, p.Left, p.Visible
	if err := a.button.SetAttr("style", buttonStyle(p, m.opts.ButtonSize)); err != nil {
		debugLog.Warnf("styling affordance of %s: %v", a.Field.ID, err)
	}
}

func (m *Manager) onMutation(rec dom.MutationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active {
		return
	}
	if rec.Removed > 0 {
		m.retireDetachedLocked()
	}
	if rec.Added > 0 {
		if _, err := m.scanLocked(); err != nil {
			debugLog.Errorf("rescan after mutation: %v", err)
		}
	}
	// surviving fields may have shifted
	for _, a := range m.registry.All() {
		m.positionLocked(a)
	}
}

func (m *Manager) onIntersection(id string, e dom.IntersectionEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active {
		return
	}
	a, ok := m.registry.Get(id)
	if !ok {
		return
	}
	if a.Field.Stale() {
		m.detachLocked(id)
		return
	}
	debugLog.Debugf("field %s intersecting=%t", id, e.Intersecting)
	m.positionLocked(a)
}

// repositionAll is the debounced viewport pass.
func (m *Manager) repositionAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active {
		return
	}
	m.retireDetachedLocked()
	for _, a := range m.registry.All() {
		m.positionLocked(a)
	}
}

func (m *Manager) onClick(id string) {
	m.mu.Lock()
	a, ok := m.registry.Get(id)
	activate := m.onActivate
	active := m.state == Active
	m.mu.Unlock()

	if !ok || !active || activate == nil {
		return
	}
	activate(a.Field)
}
