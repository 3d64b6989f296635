package browser

import (
	"fmt"

	"github.com/entrhq/formless/pkg/dom"
	"github.com/playwright-community/playwright-go"
)

// Element wraps a Playwright element handle. Handles stay valid after the
// node is detached; Connected reports that state.
type Element struct {
	doc    *Document
	handle playwright.ElementHandle
}

var _ dom.Element = (*Element)(nil)

func (e *Element) eval(expr string, arg ...any) (any, error) {
	return e.handle.Evaluate(expr, arg...)
}

func (e *Element) Tag() string {
	res, err := e.eval(jsTag)
	if err != nil {
		return ""
	}
	tag, _ := res.(string)
	return tag
}

func (e *Element) Attr(name string) (string, bool) {
	res, err := e.eval(jsGetAttr, name)
	if err != nil || res == nil {
		return "", false
	}
	v, ok := res.(string)
	return v, ok
}

func (e *Element) SetAttr(name, value string) error {
	if _, err := e.eval(jsSetAttr, []any{name, value}); err != nil {
		return fmt.Errorf("browser: set %s: %w", name, err)
	}
	return nil
}

func (e *Element) Value() (string, error) {
	res, err := e.eval(jsValue)
	if err != nil {
		return "", fmt.Errorf("browser: read value: %w", err)
	}
	v, _ := res.(string)
	return v, nil
}

func (e *Element) SetValue(value string) error {
	if _, err := e.eval(jsSetValue, value); err != nil {
		return fmt.Errorf("browser: set value: %w", err)
	}
	return nil
}

func (e *Element) Text() string {
	text, err := e.handle.TextContent()
	if err != nil {
		return ""
	}
	return dom.NormalizeText(text)
}

func (e *Element) Options() ([]dom.Option, error) {
	res, err := e.eval(jsSelectOpts)
	if err != nil {
		return nil, fmt.Errorf("browser: read options: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("browser: <%s> has no options", e.Tag())
	}
	items, _ := res.([]any)
	opts := make([]dom.Option, 0, len(items))
	for _, item := range items {
		m, _ := item.(map[string]any)
		value, _ := m["value"].(string)
		text, _ := m["text"].(string)
		opts = append(opts, dom.Option{Value: value, Text: dom.NormalizeText(text)})
	}
	return opts, nil
}

func (e *Element) Dispatch(ev dom.Event) error {
	if _, err := e.eval(jsDispatch, []any{ev.Type, ev.Init.Bubbles, ev.Init.Composed}); err != nil {
		return fmt.Errorf("browser: dispatch %s: %w", ev, err)
	}
	return nil
}

func (e *Element) Box() (dom.Rect, error) {
	box, err := e.handle.BoundingBox()
	if err != nil {
		return dom.Rect{}, fmt.Errorf("browser: bounding box: %w", err)
	}
	if box == nil {
		return dom.Rect{}, nil
	}
	return dom.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *Element) Visible() bool {
	res, err := e.eval(jsVisible)
	if err != nil {
		return false
	}
	v, _ := res.(bool)
	return v
}

func (e *Element) Connected() bool {
	res, err := e.eval(jsConnected)
	if err != nil {
		return false
	}
	v, _ := res.(bool)
	return v
}

func (e *Element) Closest(selector string) (dom.Element, error) {
	h, err := e.handle.EvaluateHandle(jsClosest, selector)
	if err != nil {
		return nil, fmt.Errorf("browser: closest %q: %w", selector, err)
	}
	el := h.AsElement()
	if el == nil {
		return nil, nil
	}
	return &Element{doc: e.doc, handle: el}, nil
}

func (e *Element) QueryAll(selector string) ([]dom.Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	return wrapAll(e.doc, handles), nil
}

func (e *Element) Remove() error {
	if _, err := e.eval(jsRemove); err != nil {
		return fmt.Errorf("browser: remove: %w", err)
	}
	return nil
}
