// Package matching carries the request/response contract between the form
// engine and the matching service, the HTTP client the engine uses, and a
// reference engine backed by the memory store.
package matching

import (
	"context"
	"errors"
)

// ErrNoFields is returned for a request without labels.
var ErrNoFields = errors.New("matching: parsed_fields is required")

// Request asks for values for a set of field labels.
type Request struct {
	ParsedFields []string `json:"parsed_fields"`
	// MemoryIntents restricts candidate memories; nil means unrestricted
	// and is sent as null.
	MemoryIntents []string          `json:"memory_intents"`
	UserPrompts   map[string]string `json:"user_prompts,omitempty"`
	Context       string            `json:"context,omitempty"`
}

// Response maps labels to values. A label that is absent or maps to "" has
// no confident match.
type Response struct {
	MatchedFields map[string]string `json:"matched_fields"`
}

// Value returns the matched value for label, or "".
func (r Response) Value(label string) string {
	return r.MatchedFields[label]
}

// Matcher resolves labels to values.
type Matcher interface {
	Match(ctx context.Context, req Request) (Response, error)
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if len(r.ParsedFields) == 0 {
		return ErrNoFields
	}
	return nil
}
