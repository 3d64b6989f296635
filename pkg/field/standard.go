package field

import (
	"fmt"

	"github.com/entrhq/formless/pkg/dom"
)

// Standard handles conventional markup forms. It only reports controls that
// carry a native id.
type Standard struct{}

var _ Adapter = Standard{}

func (Standard) Tag() AdapterTag { return AdapterStandard }

// Detect always succeeds; Standard is the catch-all adapter.
func (Standard) Detect(dom.Document) bool { return true }

func (Standard) Discover(doc dom.Document) ([]dom.Element, error) {
	els, err := doc.QueryAll(ControlSelector)
	if err != nil {
		return nil, fmt.Errorf("field: standard discovery failed: %w", err)
	}
	return els, nil
}

func (Standard) Identify(el dom.Element) (string, bool) {
	id := attrOf(el, "id")
	return id, id != ""
}

// Name resolves the label: associated <label for>, then placeholder, then
// aria-label, then the id itself.
func (Standard) Name(el dom.Element) string {
	id := attrOf(el, "id")

	var labelText string
	if id != "" {
		if root, err := el.Closest("html"); err == nil && root != nil {
			if labels, err := root.QueryAll(dom.AttrSelector("label", "for", id)); err == nil && len(labels) > 0 {
				labelText = labels[0].Text()
			}
		}
	}

	if name := firstNonEmpty(labelText, attrOf(el, "placeholder"), attrOf(el, "aria-label"), id); name != "" {
		return name
	}
	return UnknownLabel
}

// Fill sets the value then fires bubbling input and change events.
func (Standard) Fill(el dom.Element, value string) error {
	if err := el.SetValue(value); err != nil {
		return fmt.Errorf("field: failed to set value: %w", err)
	}
	for _, ev := range []dom.Event{
		{Type: "input", Init: dom.EventInit{Bubbles: true}},
		{Type: "change", Init: dom.EventInit{Bubbles: true}},
	} {
		if err := el.Dispatch(ev); err != nil {
			return fmt.Errorf("field: failed to dispatch %s: %w", ev.Type, err)
		}
	}
	return nil
}
