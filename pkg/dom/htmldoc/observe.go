package htmldoc

import (
	"sort"

	"github.com/entrhq/formless/pkg/dom"
	"golang.org/x/net/html"
)

type subKind int

const (
	subMutation subKind = iota
	subIntersection
	subViewport
	subClick
)

type subscription struct {
	page   *Page
	id     int
	kind   subKind
	closed bool

	selector string
	node     *html.Node

	// intersection state; known is false until the first entry is queued
	known        bool
	intersecting bool

	onMutation     func(dom.MutationRecord)
	onIntersection func(dom.IntersectionEntry)
	onViewport     func(dom.ViewportEvent)
	onClick        func()
}

// Close releases the subscription. Queued deliveries for it are dropped.
func (s *subscription) Close() error {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	delete(s.page.subs, s.id)
	return nil
}

type delivery struct {
	sub *subscription
	run func()
}

func (p *Page) ObserveMutations(selector string, fn func(dom.MutationRecord)) (dom.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.compile(selector); err != nil {
		return nil, err
	}
	s := p.addSub(subMutation)
	s.selector = selector
	s.onMutation = fn
	return s, nil
}

// ObserveIntersection watches el against the viewport. As in a browser, the
// current state is delivered once right after observing.
func (p *Page) ObserveIntersection(el dom.Element, fn func(dom.IntersectionEntry)) (dom.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.addSub(subIntersection)
	s.node = el.(*Element).node
	s.onIntersection = fn
	p.checkIntersection(s)
	return s, nil
}

func (p *Page) ObserveViewport(fn func(dom.ViewportEvent)) (dom.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.addSub(subViewport)
	s.onViewport = fn
	return s, nil
}

func (p *Page) ObserveClicks(el dom.Element, fn func()) (dom.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.addSub(subClick)
	s.node = el.(*Element).node
	s.onClick = fn
	return s, nil
}

// ActiveObservers returns the number of open subscriptions.
func (p *Page) ActiveObservers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Pending returns the number of queued, undelivered callbacks.
func (p *Page) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Flush delivers queued observer callbacks in order until the queue is empty,
// including callbacks queued by the callbacks themselves. Deliveries for
// subscriptions closed in the meantime are dropped.
func (p *Page) Flush() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		next := p.queue[0]
		p.queue = p.queue[1:]
		live := !next.sub.closed
		p.mu.Unlock()

		if live {
			next.run()
		}
	}
}

func (p *Page) addSub(kind subKind) *subscription {
	p.nextSub++
	s := &subscription{page: p, id: p.nextSub, kind: kind}
	p.subs[s.id] = s
	return s
}

// sortedSubs returns open subscriptions in creation order so deliveries are
// deterministic. Callers hold p.mu.
func (p *Page) sortedSubs() []*subscription {
	out := make([]*subscription, 0, len(p.subs))
	for _, s := range p.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (p *Page) enqueue(s *subscription, run func()) {
	p.queue = append(p.queue, delivery{sub: s, run: run})
}

// recordMutation queues a record for every mutation observer whose selector
// matches n or one of its descendants. Callers hold p.mu.
func (p *Page) recordMutation(n *html.Node, added bool) {
	if n.Type != html.ElementNode {
		return
	}
	for _, s := range p.sortedSubs() {
		if s.kind != subMutation {
			continue
		}
		sel, err := p.compile(s.selector)
		if err != nil {
			continue
		}
		count := 0
		if sel.Match(n) {
			count++
		}
		walk(n, func(c *html.Node) bool {
			if c != n && c.Type == html.ElementNode && sel.Match(c) {
				count++
			}
			return true
		})
		if count == 0 {
			continue
		}

		rec := dom.MutationRecord{}
		if added {
			rec.Added = count
		} else {
			rec.Removed = count
		}
		fn := s.onMutation
		p.enqueue(s, func() { fn(rec) })
	}
}

func (p *Page) queueViewport(kind dom.ViewportEventKind) {
	for _, s := range p.sortedSubs() {
		if s.kind != subViewport {
			continue
		}
		fn := s.onViewport
		ev := dom.ViewportEvent{Kind: kind}
		p.enqueue(s, func() { fn(ev) })
	}
}

func (p *Page) recomputeIntersections() {
	for _, s := range p.sortedSubs() {
		if s.kind == subIntersection {
			p.checkIntersection(s)
		}
	}
}

// checkIntersection queues an entry when the element's intersection state
// changed since the last entry. Callers hold p.mu.
func (p *Page) checkIntersection(s *subscription) {
	box := p.viewportBox(s.node)
	intersecting := p.connected(s.node) && p.visible(s.node) && !box.Empty() &&
		box.Bottom() > 0 && box.Y < p.viewport.Height &&
		box.Right() > 0 && box.X < p.viewport.Width

	if s.known && s.intersecting == intersecting {
		return
	}
	s.known = true
	s.intersecting = intersecting

	fn := s.onIntersection
	entry := dom.IntersectionEntry{Intersecting: intersecting, Box: box}
	p.enqueue(s, func() { fn(entry) })
}
