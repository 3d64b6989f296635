// Package htmldoc implements dom.Document over a static HTML page held in
// memory.
//
// The page carries just enough browser behaviour for the field engine to run
// unchanged: a value property separate from the value attribute, a synthetic
// block layout for form controls, a scrollable viewport, an event log per
// element, and observers whose callbacks are queued and delivered by Flush,
// the page's equivalent of a microtask checkpoint.
package htmldoc

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/entrhq/formless/pkg/dom"
	"golang.org/x/net/html"
)

// Synthetic layout used when no explicit box was assigned with SetBox.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	controlLeft   = 16
	controlTop    = 16
	controlWidth  = 320
	controlHeight = 32
	controlStride = 48
)

const layoutSelector = "input, textarea, select"

// Page is an in-memory document. It is safe for concurrent use; observer
// callbacks never run while the page lock is held.
type Page struct {
	mu sync.Mutex

	url  string
	root *html.Node
	body *html.Node

	viewport dom.Viewport
	boxes    map[*html.Node]dom.Rect
	values   map[*html.Node]string
	events   map[*html.Node][]dom.Event

	subs    map[int]*subscription
	nextSub int
	queue   []delivery

	selectors map[string]cascadia.SelectorGroup
}

// Parse reads an HTML document served from pageURL.
func Parse(pageURL string, r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: failed to parse HTML: %w", err)
	}

	p := &Page{
		url:  pageURL,
		root: root,
		viewport: dom.Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		boxes:     make(map[*html.Node]dom.Rect),
		values:    make(map[*html.Node]string),
		events:    make(map[*html.Node][]dom.Event),
		subs:      make(map[int]*subscription),
		selectors: make(map[string]cascadia.SelectorGroup),
	}
	p.body = findElement(root, "body")
	if p.body == nil {
		return nil, fmt.Errorf("htmldoc: document has no body")
	}
	return p, nil
}

// ParseString is Parse over a string.
func ParseString(pageURL, src string) (*Page, error) {
	return Parse(pageURL, strings.NewReader(src))
}

// URL returns the page URL.
func (p *Page) URL() string {
	return p.url
}

// Title returns the text of the first <title> element.
func (p *Page) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := findElement(p.root, "title"); n != nil {
		return dom.NormalizeText(textContent(n))
	}
	return ""
}

// Description returns the content of <meta name="description">.
func (p *Page) Description() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var description string
	found := false
	walk(p.root, func(n *html.Node) bool {
		if found {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			if name, _ := attr(n, "name"); strings.EqualFold(name, "description") {
				content, _ := attr(n, "content")
				description = strings.TrimSpace(content)
				found = true
			}
		}
		return true
	})
	return description
}

// QueryAll returns the elements matching selector in document order.
func (p *Page) QueryAll(selector string) ([]dom.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sel, err := p.compile(selector)
	if err != nil {
		return nil, err
	}
	return p.wrapAll(cascadia.QueryAll(p.root, sel)), nil
}

// Query returns the first element matching selector, or nil.
func (p *Page) Query(selector string) (dom.Element, error) {
	all, err := p.QueryAll(selector)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// MustQuery is Query for tests and fixtures; it panics when nothing matches.
func (p *Page) MustQuery(selector string) *Element {
	el, err := p.Query(selector)
	if err != nil {
		panic(err)
	}
	if el == nil {
		panic(fmt.Sprintf("htmldoc: no element matches %q", selector))
	}
	return el.(*Element)
}

// Viewport returns the current viewport.
func (p *Page) Viewport() (dom.Viewport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport, nil
}

// CreateElement appends a new element to the body.
func (p *Page) CreateElement(tag string, attrs map[string]string) (dom.Element, error) {
	n := &html.Node{
		Type: html.ElementNode,
		Data: strings.ToLower(tag),
	}
	for k, v := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: v})
	}

	p.mu.Lock()
	p.body.AppendChild(n)
	p.recordMutation(n, true)
	p.mu.Unlock()

	return p.wrap(n), nil
}

// AppendHTML parses fragment and appends the resulting nodes to parent,
// or to the body when parent is nil.
func (p *Page) AppendHTML(parent dom.Element, fragment string) ([]dom.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.body
	if parent != nil {
		el, ok := parent.(*Element)
		if !ok || el.page != p {
			return nil, fmt.Errorf("htmldoc: parent does not belong to this page")
		}
		target = el.node
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), target)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: failed to parse fragment: %w", err)
	}

	added := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		target.AppendChild(n)
		p.recordMutation(n, true)
		if n.Type == html.ElementNode {
			added = append(added, p.wrap(n))
		}
	}
	return added, nil
}

// SetBox pins an element's layout box, in document coordinates.
func (p *Page) SetBox(el dom.Element, box dom.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.boxes[el.(*Element).node] = box
	p.recomputeIntersections()
}

// ScrollTo scrolls the viewport and notifies viewport and intersection observers.
func (p *Page) ScrollTo(x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.viewport.ScrollX = x
	p.viewport.ScrollY = y
	p.queueViewport(dom.ViewportScroll)
	p.recomputeIntersections()
}

// Resize changes the viewport size and notifies observers.
func (p *Page) Resize(width, height float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.viewport.Width = width
	p.viewport.Height = height
	p.queueViewport(dom.ViewportResize)
	p.recomputeIntersections()
}

// Click simulates a user click on el; click observers on el or its ancestors fire.
func (p *Page) Click(el dom.Element) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := el.(*Element).node
	for _, s := range p.sortedSubs() {
		if s.kind != subClick {
			continue
		}
		for n := target; n != nil; n = n.Parent {
			if n == s.node {
				p.enqueue(s, s.onClick)
				break
			}
		}
	}
}

// Events returns the events dispatched on el, in order.
func (p *Page) Events(el dom.Element) []dom.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	events := p.events[el.(*Element).node]
	out := make([]dom.Event, len(events))
	copy(out, events)
	return out
}

// EventTypes returns the event types dispatched on el, in order.
func (p *Page) EventTypes(el dom.Element) []string {
	events := p.Events(el)
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

// compile returns a cached selector group. Callers hold p.mu.
func (p *Page) compile(selector string) (cascadia.SelectorGroup, error) {
	if sel, ok := p.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: invalid selector %q: %w", selector, err)
	}
	p.selectors[selector] = sel
	return sel, nil
}

func (p *Page) wrap(n *html.Node) *Element {
	return &Element{page: p, node: n}
}

func (p *Page) wrapAll(nodes []*html.Node) []dom.Element {
	out := make([]dom.Element, len(nodes))
	for i, n := range nodes {
		out[i] = p.wrap(n)
	}
	return out
}

// connected reports whether n is attached under the document root.
func (p *Page) connected(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == p.root {
			return true
		}
	}
	return false
}

// visible mirrors offsetParent !== null: attached, not display:none, not hidden.
func (p *Page) visible(n *html.Node) bool {
	if !p.connected(n) {
		return false
	}
	if n.Data == "input" {
		if t, _ := attr(n, "type"); strings.EqualFold(t, "hidden") {
			return false
		}
	}
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if _, ok := attr(cur, "hidden"); ok {
			return false
		}
		if style, ok := attr(cur, "style"); ok && displayNone(style) {
			return false
		}
	}
	return true
}

// box returns the document-coordinate box for n. Callers hold p.mu.
func (p *Page) box(n *html.Node) dom.Rect {
	if b, ok := p.boxes[n]; ok {
		return b
	}
	if !p.visible(n) {
		return dom.Rect{}
	}

	sel, _ := p.compile(layoutSelector)
	if !sel.Match(n) {
		return dom.Rect{}
	}

	ordinal := 0
	for _, c := range cascadia.QueryAll(p.root, sel) {
		if c == n {
			break
		}
		if p.visible(c) {
			ordinal++
		}
	}
	return dom.Rect{
		X:      controlLeft,
		Y:      controlTop + float64(ordinal*controlStride),
		Width:  controlWidth,
		Height: controlHeight,
	}
}

// viewportBox converts a document box to viewport coordinates.
func (p *Page) viewportBox(n *html.Node) dom.Rect {
	b := p.box(n)
	b.X -= p.viewport.ScrollX
	b.Y -= p.viewport.ScrollY
	return b
}

func displayNone(style string) bool {
	compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(compact, "display:none")
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the node just visited.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findElement(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}
