package htmldoc

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/entrhq/formless/pkg/dom"
	"golang.org/x/net/html"
)

// Element wraps one node of a Page.
type Element struct {
	page *Page
	node *html.Node
}

var _ dom.Element = (*Element)(nil)

// Node exposes the underlying parse node.
func (e *Element) Node() *html.Node {
	return e.node
}

// Same reports whether two elements wrap the same node.
func (e *Element) Same(other dom.Element) bool {
	o, ok := other.(*Element)
	return ok && o.node == e.node
}

func (e *Element) Tag() string {
	return e.node.Data
}

func (e *Element) Attr(name string) (string, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return attr(e.node, name)
}

func (e *Element) SetAttr(name, value string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	setAttr(e.node, name, value)
	switch strings.ToLower(name) {
	case "style", "hidden", "type":
		e.page.recomputeIntersections()
	}
	return nil
}

// Value returns the value property. Until SetValue is called it reflects the
// markup: the value attribute for inputs, the text for textareas and the
// selected option for selects.
func (e *Element) Value() (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	if v, ok := e.page.values[e.node]; ok {
		return v, nil
	}

	switch e.node.Data {
	case "input":
		v, _ := attr(e.node, "value")
		return v, nil
	case "textarea":
		return textContent(e.node), nil
	case "select":
		opts := options(e.node)
		for _, o := range opts {
			if o.selected {
				return o.Value, nil
			}
		}
		if len(opts) > 0 {
			return opts[0].Value, nil
		}
	}
	return "", nil
}

// SetValue assigns the value property. A select only accepts the value of
// one of its options; anything else clears it, as in a browser.
func (e *Element) SetValue(value string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	if e.node.Data == "select" {
		matched := false
		for _, o := range options(e.node) {
			if o.Value == value {
				matched = true
				break
			}
		}
		if !matched {
			value = ""
		}
	}
	e.page.values[e.node] = value
	return nil
}

func (e *Element) Text() string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return dom.NormalizeText(textContent(e.node))
}

func (e *Element) Options() ([]dom.Option, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	opts := options(e.node)
	out := make([]dom.Option, len(opts))
	for i, o := range opts {
		out[i] = o.Option
	}
	return out, nil
}

// Dispatch records the event in the element's event log.
func (e *Element) Dispatch(ev dom.Event) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	e.page.events[e.node] = append(e.page.events[e.node], ev)
	return nil
}

func (e *Element) Box() (dom.Rect, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.page.viewportBox(e.node), nil
}

func (e *Element) Visible() bool {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.page.visible(e.node)
}

func (e *Element) Connected() bool {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.page.connected(e.node)
}

func (e *Element) Closest(selector string) (dom.Element, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	sel, err := e.page.compile(selector)
	if err != nil {
		return nil, err
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && sel.Match(n) {
			return e.page.wrap(n), nil
		}
	}
	return nil, nil
}

func (e *Element) QueryAll(selector string) ([]dom.Element, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	sel, err := e.page.compile(selector)
	if err != nil {
		return nil, err
	}
	return e.page.wrapAll(cascadia.QueryAll(e.node, sel)), nil
}

// Remove detaches the element and notifies mutation observers.
func (e *Element) Remove() error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	if e.node.Parent == nil {
		return nil
	}
	if e.page.connected(e.node) {
		e.page.recordMutation(e.node, false)
	}
	e.node.Parent.RemoveChild(e.node)
	e.page.recomputeIntersections()
	return nil
}

type option struct {
	dom.Option
	selected bool
}

func options(sel *html.Node) []option {
	var out []option
	walk(sel, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "option" {
			text := dom.NormalizeText(textContent(n))
			value, ok := attr(n, "value")
			if !ok {
				value = text
			}
			_, selected := attr(n, "selected")
			out = append(out, option{Option: dom.Option{Value: value, Text: text}, selected: selected})
			return false
		}
		return true
	})
	return out
}
