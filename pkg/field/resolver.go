package field

import (
	"fmt"

	"github.com/entrhq/formless/pkg/dom"
)

// Resolver routes discovery and naming for one document to a single adapter
// chosen at construction.
type Resolver struct {
	doc     dom.Document
	adapter Adapter
}

// DefaultAdapters returns the adapters in detection order: Google Forms
// first, Standard as the catch-all.
func DefaultAdapters() []Adapter {
	return []Adapter{NewGoogleForms(), Standard{}}
}

// NewResolver pins the first adapter whose Detect accepts doc. With no
// adapters given, DefaultAdapters is used.
func NewResolver(doc dom.Document, adapters ...Adapter) (*Resolver, error) {
	if len(adapters) == 0 {
		adapters = DefaultAdapters()
	}
	for _, a := range adapters {
		if a.Detect(doc) {
			return &Resolver{doc: doc, adapter: a}, nil
		}
	}
	return nil, fmt.Errorf("field: no adapter accepts %s", doc.URL())
}

// Adapter returns the pinned adapter.
func (r *Resolver) Adapter() Adapter {
	return r.adapter
}

// Document returns the document the resolver was built for.
func (r *Resolver) Document() dom.Document {
	return r.doc
}

// Discover returns the eligible fields in document order: a recognized
// control kind, visible, identifiable, and not part of the overlay.
func (r *Resolver) Discover() ([]Field, error) {
	els, err := r.adapter.Discover(r.doc)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(els))
	seen := make(map[string]bool, len(els))
	for _, el := range els {
		f, ok := r.fieldFor(el)
		if !ok || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		fields = append(fields, f)
	}
	return fields, nil
}

// Eligible reports whether el would be returned by Discover.
func (r *Resolver) Eligible(el dom.Element) bool {
	return KindOf(el) != KindUnknown && el.Visible() && !dom.IsOverlay(el)
}

// NameOf returns the field's current label through the pinned adapter.
func (r *Resolver) NameOf(el dom.Element) string {
	return r.adapter.Name(el)
}

func (r *Resolver) fieldFor(el dom.Element) (Field, bool) {
	if !r.Eligible(el) {
		return Field{}, false
	}
	id, ok := r.adapter.Identify(el)
	if !ok {
		return Field{}, false
	}
	return Field{
		ID:      id,
		Label:   r.adapter.Name(el),
		Kind:    KindOf(el),
		Adapter: r.adapter.Tag(),
		Element: el,
	}, true
}
