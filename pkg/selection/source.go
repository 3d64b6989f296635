package selection

import (
	"github.com/entrhq/formless/pkg/field"
)

// ResolverSource serves fields straight from a resolver, for pages driven
// without an overlay (batch runs, offline scans).
type ResolverSource struct {
	Resolver *field.Resolver
}

var _ FieldSource = ResolverSource{}

// Lookup rediscovers the page and returns the field with the given ID.
func (r ResolverSource) Lookup(id string) (field.Field, bool) {
	fields, err := r.Resolver.Discover()
	if err != nil {
		return field.Field{}, false
	}
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return field.Field{}, false
}

func (r ResolverSource) Discover() ([]field.Field, error) {
	return r.Resolver.Discover()
}

func (r ResolverSource) NameOf(f field.Field) string {
	return r.Resolver.NameOf(f.Element)
}
