package overlay

import (
	"fmt"

	"github.com/entrhq/formless/pkg/dom"
	"github.com/entrhq/formless/pkg/field"
)

// Affordance is the injected button serving one field.
type Affordance struct {
	Field   field.Field
	Top     float64
	Left    float64
	Visible bool

	button dom.Element
}

// Button returns the injected button element.
func (a *Affordance) Button() dom.Element {
	return a.button
}

// Registry tracks affordances by field ID. Insert and Remove are the only
// ways entries come and go.
type Registry struct {
	entries map[string]*Affordance
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Affordance)}
}

// Insert adds a, failing if its field ID is already tracked.
func (r *Registry) Insert(a *Affordance) error {
	id := a.Field.ID
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("overlay: field %q already has an affordance", id)
	}
	r.entries[id] = a
	r.order = append(r.order, id)
	return nil
}

// Remove drops the entry for id and returns it.
func (r *Registry) Remove(id string) (*Affordance, bool) {
	a, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return a, true
}

func (r *Registry) Get(id string) (*Affordance, bool) {
	a, ok := r.entries[id]
	return a, ok
}

func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// All returns the affordances in insertion order.
func (r *Registry) All() []*Affordance {
	out := make([]*Affordance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}
