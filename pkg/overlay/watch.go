package overlay

import (
	"errors"
	"sync"
	"time"

	"github.com/entrhq/formless/pkg/dom"
)

// pageOwner owns the document-wide watchers; per-field watchers are owned by
// the field ID.
const pageOwner = ""

// watchSet holds every live subscription the manager acquired, grouped by
// owner so a retired field releases exactly its own watchers.
type watchSet struct {
	subs map[string][]dom.Subscription
}

func newWatchSet() *watchSet {
	return &watchSet{subs: make(map[string][]dom.Subscription)}
}

func (w *watchSet) add(owner string, s dom.Subscription) {
	w.subs[owner] = append(w.subs[owner], s)
}

func (w *watchSet) release(owner string) error {
	var errs []error
	for _, s := range w.subs[owner] {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	delete(w.subs, owner)
	return errors.Join(errs...)
}

func (w *watchSet) releaseAll() error {
	var errs []error
	for owner := range w.subs {
		errs = append(errs, w.release(owner))
	}
	return errors.Join(errs...)
}

func (w *watchSet) len() int {
	n := 0
	for _, subs := range w.subs {
		n += len(subs)
	}
	return n
}

// debouncer runs fn once after delay has passed without another Trigger.
// A zero delay runs fn synchronously.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
	gen   int
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

func (d *debouncer) Trigger() {
	if d.delay <= 0 {
		d.fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
}

// Stop cancels a pending run, including one whose timer already fired.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a run is scheduled.
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
