// Package dom defines the document contract the field engine runs against.
//
// Two implementations exist: htmldoc, an in-memory page parsed from static
// HTML, and browser, which drives a live page through Playwright. Engine code
// only ever sees the interfaces declared here, so discovery, naming, filling
// and overlay tracking behave the same on both.
//
// Selectors are CSS selector strings. Both implementations accept the subset
// used by the engine: tag, attribute (presence, =, *=, ^=), :not() and
// comma-separated groups.
package dom

import (
	"fmt"
	"strings"
)

const (
	// OverlayAttr marks every element injected by the overlay. Elements
	// carrying it, or nested under one that does, are never fields.
	OverlayAttr = "data-formless-overlay"

	// FieldAttr is set on affordance buttons to the ID of the field they serve.
	FieldAttr = "data-formless-field"
)

// Rect is a layout box in CSS pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Empty reports whether the box has zero area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Viewport describes the visible window and its scroll offset.
type Viewport struct {
	Width   float64
	Height  float64
	ScrollX float64
	ScrollY float64
}

// EventInit mirrors the DOM EventInit dictionary.
type EventInit struct {
	Bubbles  bool
	Composed bool
}

// Event is a synthetic event dispatched on an element.
type Event struct {
	Type string
	Init EventInit
}

// String renders the event the way it shows up in logs, e.g. "input(bubbles,composed)".
func (e Event) String() string {
	var flags []string
	if e.Init.Bubbles {
		flags = append(flags, "bubbles")
	}
	if e.Init.Composed {
		flags = append(flags, "composed")
	}
	if len(flags) == 0 {
		return e.Type
	}
	return fmt.Sprintf("%s(%s)", e.Type, strings.Join(flags, ","))
}

// Option is one choice of a select control.
type Option struct {
	Value string
	Text  string
}

// Element is a live reference to one node in the host document.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string

	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)
	SetAttr(name, value string) error

	// Value and SetValue access the control's value property.
	Value() (string, error)
	SetValue(value string) error

	// Text returns the element's text content, whitespace-collapsed.
	Text() string

	// Options lists the choices of a select element.
	Options() ([]Option, error)

	Dispatch(ev Event) error

	// Box returns the layout box relative to the viewport.
	Box() (Rect, error)

	// Visible reports layout participation (offsetParent !== null).
	Visible() bool

	// Connected reports whether the element is still attached to the document.
	Connected() bool

	// Closest returns the nearest inclusive ancestor matching selector, or nil.
	Closest(selector string) (Element, error)

	// QueryAll returns descendants matching selector in document order.
	QueryAll(selector string) ([]Element, error)

	// Remove detaches the element from the document.
	Remove() error
}

// Document is the host page.
type Document interface {
	Observer

	URL() string
	Title() string

	QueryAll(selector string) ([]Element, error)
	Viewport() (Viewport, error)

	// CreateElement appends a new element to the body with the given attributes.
	CreateElement(tag string, attrs map[string]string) (Element, error)
}

// Subscription is a live watcher. Close releases it; closing twice is a no-op.
type Subscription interface {
	Close() error
}

// MutationRecord summarizes one batch of subtree mutations, counting only
// nodes that match the watched selector (directly or through descendants).
type MutationRecord struct {
	Added   int
	Removed int
}

// IntersectionEntry reports a change in an element's viewport intersection.
type IntersectionEntry struct {
	Intersecting bool
	Box          Rect
}

// ViewportEventKind distinguishes scroll from resize.
type ViewportEventKind string

const (
	ViewportScroll ViewportEventKind = "scroll"
	ViewportResize ViewportEventKind = "resize"
)

// ViewportEvent is delivered on scroll or resize.
type ViewportEvent struct {
	Kind ViewportEventKind
}

// Observer hands out watchers. Callbacks are delivered one at a time, never
// concurrently with each other.
type Observer interface {
	ObserveMutations(selector string, fn func(MutationRecord)) (Subscription, error)
	ObserveIntersection(el Element, fn func(IntersectionEntry)) (Subscription, error)
	ObserveViewport(fn func(ViewportEvent)) (Subscription, error)
	ObserveClicks(el Element, fn func()) (Subscription, error)
}

// IsOverlay reports whether el belongs to the overlay UI.
func IsOverlay(el Element) bool {
	if _, ok := el.Attr(OverlayAttr); ok {
		return true
	}
	anc, err := el.Closest("[" + OverlayAttr + "]")
	return err == nil && anc != nil
}

// AttrSelector builds tag[attr="value"] with value quoted for CSS.
func AttrSelector(tag, attr, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return fmt.Sprintf(`%s[%s="%s"]`, tag, attr, escaped)
}

// NormalizeText collapses runs of whitespace and trims the result.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
