// Package memory stores the user's remembered values ("memories") that the
// matching engine draws from, and exposes them over HTTP.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("memory: not found")
	ErrInvalid  = errors.New("memory: invalid record")
)

// Type tells the matching engine how to use a memory.
type Type string

const (
	// TypeText memories are returned verbatim.
	TypeText Type = "text"

	// TypePrompt memories hold an instruction the LLM turns into a value.
	TypePrompt Type = "prompt"
)

// Input is the client-supplied part of a record.
type Input struct {
	Intent string `json:"intent"`
	Value  string `json:"value"`
	Type   Type   `json:"type"`
}

// Validate checks required fields and the type enum.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Intent) == "" {
		return fmt.Errorf("%w: intent is required", ErrInvalid)
	}
	switch in.Type {
	case TypeText, TypePrompt:
	default:
		return fmt.Errorf("%w: type must be %q or %q, got %q", ErrInvalid, TypeText, TypePrompt, in.Type)
	}
	return nil
}

// Record is a stored memory.
type Record struct {
	ID        string    `json:"id"`
	Intent    string    `json:"intent"`
	Value     string    `json:"value"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence contract for memories.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, in Input) (Record, error)
	Update(ctx context.Context, id string, in Input) (Record, error)
	Delete(ctx context.Context, id string) error
}

// Lister is the read-only view consumed by the matching engine and the picker.
type Lister interface {
	List(ctx context.Context) ([]Record, error)
}

// FilterIntents keeps the records whose intent is in intents. A nil slice
// means no restriction.
func FilterIntents(records []Record, intents []string) []Record {
	if intents == nil {
		return records
	}
	allowed := make(map[string]bool, len(intents))
	for _, i := range intents {
		allowed[i] = true
	}
	var out []Record
	for _, r := range records {
		if allowed[r.Intent] {
			out = append(out, r)
		}
	}
	return out
}

// Intents returns the distinct intents of records in order of first appearance.
func Intents(records []Record) []string {
	seen := make(map[string]bool, len(records))
	var out []string
	for _, r := range records {
		if !seen[r.Intent] {
			seen[r.Intent] = true
			out = append(out, r.Intent)
		}
	}
	return out
}
