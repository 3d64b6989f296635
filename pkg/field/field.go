// Package field discovers fillable controls in a document and gives each one
// a stable identity and a label suitable for matching.
//
// Discovery and naming are delegated to an Adapter. A Resolver picks exactly
// one adapter per document, by detection, and uses it for every call.
package field

import (
	"strings"

	"github.com/entrhq/formless/pkg/dom"
)

// Kind determines the fill strategy for a field.
type Kind string

const (
	KindText    Kind = "text"
	KindChoice  Kind = "choice"
	KindUnknown Kind = "unknown"
)

// AdapterTag names the adapter that owns a field.
type AdapterTag string

const (
	AdapterStandard    AdapterTag = "standard"
	AdapterGoogleForms AdapterTag = "google-forms"
)

// Labels used when no naming tier produced anything.
const (
	UnknownLabel         = "unknown"
	UnknownQuestionLabel = "Unknown Question"
)

// Field is one discovered, fillable control.
type Field struct {
	ID      string
	Label   string
	Kind    Kind
	Adapter AdapterTag
	Element dom.Element
}

// Stale reports whether the backing element left the document.
func (f Field) Stale() bool {
	return f.Element == nil || !f.Element.Connected()
}

// textInputTypes are the input types treated as free text. An input without a
// type attribute is text as well.
var textInputTypes = map[string]bool{
	"":         true,
	"text":     true,
	"email":    true,
	"tel":      true,
	"url":      true,
	"search":   true,
	"number":   true,
	"password": true,
}

// KindOf classifies a control element.
func KindOf(el dom.Element) Kind {
	switch el.Tag() {
	case "select":
		return KindChoice
	case "textarea":
		return KindText
	case "input":
		t, _ := el.Attr("type")
		if textInputTypes[strings.ToLower(strings.TrimSpace(t))] {
			return KindText
		}
	}
	return KindUnknown
}

// TextControlSelector matches text-like inputs and textareas.
const TextControlSelector = `input:not([type]), input[type="text"], input[type="email"], input[type="tel"], ` +
	`input[type="url"], input[type="search"], input[type="number"], input[type="password"], textarea`

// ControlSelector matches every control kind the engine can fill.
const ControlSelector = TextControlSelector + `, select`
