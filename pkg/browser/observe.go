package browser

import (
	"fmt"
	"math"
	"sync"

	"github.com/entrhq/formless/pkg/dom"
)

// notification is one report from the page, already decoded.
type notification struct {
	id      int
	payload map[string]any
}

// subscription is the Go side of one page watcher.
type subscription struct {
	d       *dispatcher
	id      int
	deliver func(payload map[string]any)

	mu     sync.Mutex
	closed bool
}

// Close releases the watcher in the page. Queued reports for it are dropped.
func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.d.release(s.id)
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// dispatcher serializes page reports onto one goroutine. Reports arrive on
// the Playwright connection goroutine; pushing them onto an unbounded queue
// keeps that goroutine free, so callbacks can evaluate in the page without
// deadlocking the connection.
type dispatcher struct {
	unobserve func(id int) error

	mu      sync.Mutex
	nextID  int
	subs    map[int]*subscription
	queue   []notification
	stopped bool

	wake chan struct{}
	done chan struct{}
}

func newDispatcher(unobserve func(id int) error) *dispatcher {
	d := &dispatcher{
		unobserve: unobserve,
		subs:      make(map[int]*subscription),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go d.loop()
	return d
}

// register allocates a subscription. install runs the page-side setup; if it
// fails the subscription is discarded.
func (d *dispatcher) register(deliver func(map[string]any), install func(id int) error) (*subscription, error) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil, errDocumentClosed
	}
	d.nextID++
	s := &subscription{d: d, id: d.nextID, deliver: deliver}
	d.subs[s.id] = s
	d.mu.Unlock()

	if err := install(s.id); err != nil {
		d.mu.Lock()
		delete(d.subs, s.id)
		d.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (d *dispatcher) release(id int) error {
	d.mu.Lock()
	_, ok := d.subs[id]
	delete(d.subs, id)
	stopped := d.stopped
	d.mu.Unlock()

	if !ok || stopped || d.unobserve == nil {
		return nil
	}
	return d.unobserve(id)
}

// notify is the exposed binding. It accepts (id, payload) and never blocks.
func (d *dispatcher) notify(args ...any) any {
	if len(args) == 0 {
		return nil
	}
	id, ok := toInt(args[0])
	if !ok {
		return nil
	}
	var payload map[string]any
	if len(args) > 1 {
		payload, _ = args[1].(map[string]any)
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.queue = append(d.queue, notification{id: id, payload: payload})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

func (d *dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			d.mu.Lock()
			if d.stopped || len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			next := d.queue[0]
			d.queue = d.queue[1:]
			s := d.subs[next.id]
			d.mu.Unlock()

			if s == nil || s.isClosed() {
				continue
			}
			s.deliver(next.payload)
		}
	}
}

// reset forgets every subscription without touching the page. Used after a
// navigation, when the page-side watchers are already gone.
func (d *dispatcher) reset() {
	d.mu.Lock()
	subs := d.subs
	d.subs = make(map[int]*subscription)
	d.queue = nil
	d.mu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	}
}

// active returns the number of open subscriptions.
func (d *dispatcher) active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

func (d *dispatcher) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.queue = nil
	d.mu.Unlock()
	d.reset()
	close(d.done)
}

// Payload decoding. Playwright hands numbers back as int or float64
// depending on whether they are integral.

func decodeMutation(p map[string]any) dom.MutationRecord {
	added, _ := toInt(p["added"])
	removed, _ := toInt(p["removed"])
	return dom.MutationRecord{Added: added, Removed: removed}
}

func decodeIntersection(p map[string]any) dom.IntersectionEntry {
	intersecting, _ := p["intersecting"].(bool)
	return dom.IntersectionEntry{
		Intersecting: intersecting,
		Box:          decodeRect(p),
	}
}

func decodeViewport(p map[string]any) (dom.ViewportEvent, error) {
	kind, _ := p["kind"].(string)
	switch dom.ViewportEventKind(kind) {
	case dom.ViewportScroll, dom.ViewportResize:
		return dom.ViewportEvent{Kind: dom.ViewportEventKind(kind)}, nil
	default:
		return dom.ViewportEvent{}, fmt.Errorf("browser: unknown viewport event %q", kind)
	}
}

func decodeRect(p map[string]any) dom.Rect {
	x, _ := toFloat(p["x"])
	y, _ := toFloat(p["y"])
	w, _ := toFloat(p["width"])
	h, _ := toFloat(p["height"])
	return dom.Rect{X: x, Y: y, Width: w, Height: h}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
