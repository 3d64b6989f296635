// Package fill writes matched values back into fields through the adapter
// that owns each field.
package fill

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/formless/pkg/field"
)

var (
	// ErrEmptyValue is returned for an empty value; the field is left untouched.
	ErrEmptyValue = errors.New("fill: empty value")

	// ErrDetached is returned when the field's element left the document.
	ErrDetached = errors.New("fill: element detached")

	// ErrNoOption is returned when a choice field has no option for the value.
	ErrNoOption = errors.New("fill: no matching option")

	// ErrNoAdapter is returned when no adapter is registered for the field.
	ErrNoAdapter = errors.New("fill: no adapter for field")
)

// Logger is the subset of logging.Logger the executor uses.
type Logger interface {
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// Executor applies values to fields.
type Executor struct {
	adapters map[field.AdapterTag]field.Adapter
	logger   Logger
}

// NewExecutor registers the adapters fields may be owned by.
func NewExecutor(adapters ...field.Adapter) *Executor {
	e := &Executor{adapters: make(map[field.AdapterTag]field.Adapter, len(adapters))}
	for _, a := range adapters {
		e.adapters[a.Tag()] = a
	}
	return e
}

// WithLogger sets the logger used for per-field outcomes.
func (e *Executor) WithLogger(l Logger) *Executor {
	e.logger = l
	return e
}

// Fill writes value into f. Choice fields accept an option value or option
// text, compared case-insensitively; the option value is what gets written.
func (e *Executor) Fill(f field.Field, value string) error {
	if value == "" {
		return ErrEmptyValue
	}
	if f.Stale() {
		return fmt.Errorf("%w: %s", ErrDetached, f.ID)
	}

	a, ok := e.adapters[f.Adapter]
	if !ok {
		return fmt.Errorf("%w: %s owned by %q", ErrNoAdapter, f.ID, f.Adapter)
	}

	if f.Kind == field.KindChoice {
		v, err := matchOption(f, value)
		if err != nil {
			return err
		}
		value = v
	}

	if err := a.Fill(f.Element, value); err != nil {
		return fmt.Errorf("fill: %s: %w", f.ID, err)
	}
	e.debugf("filled %s (%s) via %s", f.ID, f.Label, f.Adapter)
	return nil
}

func matchOption(f field.Field, value string) (string, error) {
	opts, err := f.Element.Options()
	if err != nil {
		return "", fmt.Errorf("fill: %s: failed to read options: %w", f.ID, err)
	}
	want := strings.TrimSpace(value)
	for _, o := range opts {
		if strings.EqualFold(o.Value, want) || strings.EqualFold(o.Text, want) {
			return o.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %q for %s", ErrNoOption, value, f.ID)
}

// Status is the outcome for one field of a batch.
type Status string

const (
	StatusFilled  Status = "filled"
	StatusEmpty   Status = "empty"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is one field's entry in a Report.
type Result struct {
	FieldID string
	Label   string
	Status  Status
	Err     error
}

// Report lists per-field outcomes in field order.
type Report struct {
	Results []Result
}

// Count returns the number of results with the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Filled returns the number of fields that received a value.
func (r Report) Filled() int {
	return r.Count(StatusFilled)
}

// FillAll writes values, keyed by label, into fields. Missing or empty values
// leave the field untouched, detached fields are skipped, and a failure on
// one field does not stop the rest.
func (e *Executor) FillAll(fields []field.Field, values map[string]string) Report {
	report := Report{Results: make([]Result, 0, len(fields))}
	for _, f := range fields {
		res := Result{FieldID: f.ID, Label: f.Label}

		err := e.Fill(f, values[f.Label])
		switch {
		case err == nil:
			res.Status = StatusFilled
		case errors.Is(err, ErrEmptyValue):
			res.Status = StatusEmpty
		case errors.Is(err, ErrDetached):
			res.Status = StatusSkipped
			res.Err = err
			e.warnf("skipping detached field %s", f.ID)
		default:
			res.Status = StatusFailed
			res.Err = err
			e.warnf("fill failed for %s: %v", f.ID, err)
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func (e *Executor) debugf(format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Debugf(format, v...)
	}
}

func (e *Executor) warnf(format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Warnf(format, v...)
	}
}
