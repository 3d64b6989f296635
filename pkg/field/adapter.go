package field

import (
	"github.com/entrhq/formless/pkg/dom"
)

// Adapter implements discovery, identity, naming and write-back for one
// document layout family.
type Adapter interface {
	Tag() AdapterTag

	// Detect reports whether this adapter owns the document.
	Detect(doc dom.Document) bool

	// Discover returns candidate controls in document order. Eligibility
	// filtering (visibility, overlay exclusion) is left to the Resolver.
	Discover(doc dom.Document) ([]dom.Element, error)

	// Identify returns the field ID for el, synthesizing and writing it back
	// when the adapter supports that. ok is false for elements the adapter
	// cannot identify.
	Identify(el dom.Element) (id string, ok bool)

	// Name returns a non-empty label for el.
	Name(el dom.Element) string

	// Fill writes value into el using the event sequence the layout expects.
	Fill(el dom.Element, value string) error
}

// firstNonEmpty returns the first candidate that is not blank after
// whitespace normalization.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c = dom.NormalizeText(c); c != "" {
			return c
		}
	}
	return ""
}

func attrOf(el dom.Element, name string) string {
	v, _ := el.Attr(name)
	return v
}
