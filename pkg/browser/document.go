package browser

import (
	"errors"
	"fmt"

	"github.com/entrhq/formless/pkg/dom"
	"github.com/entrhq/formless/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

var debugLog = logging.MustLogger("browser")

var errDocumentClosed = errors.New("browser: document closed")

// Document is a dom.Document over a live Playwright page.
type Document struct {
	page   playwright.Page
	events *dispatcher
}

var _ dom.Document = (*Document)(nil)

func newDocument(page playwright.Page) (*Document, error) {
	d := &Document{page: page}
	d.events = newDispatcher(d.unobserve)

	if err := page.ExposeFunction(notifyBinding, d.events.notify); err != nil {
		d.events.stop()
		return nil, fmt.Errorf("browser: failed to expose %s: %w", notifyBinding, err)
	}
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(bridgeScript)}); err != nil {
		d.events.stop()
		return nil, fmt.Errorf("browser: failed to add bridge script: %w", err)
	}
	if _, err := page.Evaluate(bridgeScript); err != nil {
		d.events.stop()
		return nil, fmt.Errorf("browser: failed to install bridge: %w", err)
	}
	return d, nil
}

// Close stops callback delivery. The page itself stays open.
func (d *Document) Close() {
	d.events.stop()
}

// ActiveObservers returns the number of open subscriptions.
func (d *Document) ActiveObservers() int {
	return d.events.active()
}

// navigated drops all subscriptions; the page-side watchers died with the
// old realm.
func (d *Document) navigated() {
	d.events.reset()
}

func (d *Document) URL() string { return d.page.URL() }

func (d *Document) Title() string {
	title, err := d.page.Title()
	if err != nil {
		debugLog.Warnf("title lookup failed: %v", err)
		return ""
	}
	return title
}

func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	handles, err := d.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	return wrapAll(d, handles), nil
}

func (d *Document) Viewport() (dom.Viewport, error) {
	res, err := d.page.Evaluate(jsScroll)
	if err != nil {
		return dom.Viewport{}, fmt.Errorf("browser: viewport: %w", err)
	}
	m, _ := res.(map[string]any)
	vp := dom.Viewport{}
	vp.ScrollX, _ = toFloat(m["x"])
	vp.ScrollY, _ = toFloat(m["y"])
	vp.Width, _ = toFloat(m["width"])
	vp.Height, _ = toFloat(m["height"])

	if size := d.page.ViewportSize(); size != nil && vp.Width == 0 {
		vp.Width = float64(size.Width)
		vp.Height = float64(size.Height)
	}
	return vp, nil
}

func (d *Document) CreateElement(tag string, attrs map[string]string) (dom.Element, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	h, err := d.page.EvaluateHandle(jsCreate, []any{tag, attrs})
	if err != nil {
		return nil, fmt.Errorf("browser: create <%s>: %w", tag, err)
	}
	el := h.AsElement()
	if el == nil {
		return nil, fmt.Errorf("browser: create <%s>: not an element", tag)
	}
	return &Element{doc: d, handle: el}, nil
}

func (d *Document) ObserveMutations(selector string, fn func(dom.MutationRecord)) (dom.Subscription, error) {
	return d.events.register(
		func(p map[string]any) { fn(decodeMutation(p)) },
		func(id int) error {
			_, err := d.page.Evaluate(`([id, sel]) => window.__formless.observeMutations(id, sel)`, []any{id, selector})
			if err != nil {
				return fmt.Errorf("browser: observe mutations %q: %w", selector, err)
			}
			return nil
		},
	)
}

func (d *Document) ObserveIntersection(el dom.Element, fn func(dom.IntersectionEntry)) (dom.Subscription, error) {
	e, err := d.own(el)
	if err != nil {
		return nil, err
	}
	return d.events.register(
		func(p map[string]any) { fn(decodeIntersection(p)) },
		func(id int) error {
			_, err := e.handle.Evaluate(`(el, id) => window.__formless.observeIntersection(id, el)`, id)
			if err != nil {
				return fmt.Errorf("browser: observe intersection: %w", err)
			}
			return nil
		},
	)
}

func (d *Document) ObserveViewport(fn func(dom.ViewportEvent)) (dom.Subscription, error) {
	return d.events.register(
		func(p map[string]any) {
			ev, err := decodeViewport(p)
			if err != nil {
				debugLog.Warnf("%v", err)
				return
			}
			fn(ev)
		},
		func(id int) error {
			_, err := d.page.Evaluate(`id => window.__formless.observeViewport(id)`, id)
			if err != nil {
				return fmt.Errorf("browser: observe viewport: %w", err)
			}
			return nil
		},
	)
}

func (d *Document) ObserveClicks(el dom.Element, fn func()) (dom.Subscription, error) {
	e, err := d.own(el)
	if err != nil {
		return nil, err
	}
	return d.events.register(
		func(map[string]any) { fn() },
		func(id int) error {
			_, err := e.handle.Evaluate(`(el, id) => window.__formless.observeClicks(id, el)`, id)
			if err != nil {
				return fmt.Errorf("browser: observe clicks: %w", err)
			}
			return nil
		},
	)
}

func (d *Document) unobserve(id int) error {
	if _, err := d.page.Evaluate(`id => window.__formless && window.__formless.unobserve(id)`, id); err != nil {
		return fmt.Errorf("browser: unobserve %d: %w", id, err)
	}
	return nil
}

func (d *Document) own(el dom.Element) (*Element, error) {
	e, ok := el.(*Element)
	if !ok || e.doc != d {
		return nil, fmt.Errorf("browser: element %T does not belong to this document", el)
	}
	return e, nil
}

func wrapAll(d *Document, handles []playwright.ElementHandle) []dom.Element {
	out := make([]dom.Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &Element{doc: d, handle: h})
	}
	return out
}
