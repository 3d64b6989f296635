package field

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/entrhq/formless/pkg/dom"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

const (
	googleFormsHost   = "docs.google.com"
	googleFormsPath   = "/forms/**"
	questionContainer = "[data-params]"
	questionHeading   = `[role="heading"]`

	// IDPrefix namespaces every synthesized field id.
	IDPrefix = "formless-gform-"

	maxAriaIDLength = 30

	// genericAnswerLabel is the aria-label Google Forms puts on every short
	// answer box; it says nothing about the question.
	genericAnswerLabel = "Your answer"
)

var (
	entryTokenPattern = regexp.MustCompile(`\[\[(\d+)`)
	nonAlnum          = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// GoogleForms handles the componentized Google Forms layout, where question
// blocks wrap an unlabeled control with no id.
type GoogleForms struct {
	pathGlob glob.Glob

	// Now and Suffix are the sources for synthesized ids; tests override them.
	Now    func() time.Time
	Suffix func() string
}

var _ Adapter = (*GoogleForms)(nil)

// NewGoogleForms returns the adapter with its path signature compiled.
func NewGoogleForms() *GoogleForms {
	return &GoogleForms{
		pathGlob: glob.MustCompile(googleFormsPath, '/'),
		Now:      time.Now,
		Suffix:   randomSuffix,
	}
}

func (g *GoogleForms) Tag() AdapterTag { return AdapterGoogleForms }

// Detect checks the host and path signature of the document URL.
func (g *GoogleForms) Detect(doc dom.Document) bool {
	u, err := url.Parse(doc.URL())
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), googleFormsHost) && g.pathGlob.Match(u.Path)
}

// Discover returns the first text-like control of each question container.
// Nested containers can yield the same control twice; it is reported once.
func (g *GoogleForms) Discover(doc dom.Document) ([]dom.Element, error) {
	if !g.Detect(doc) {
		return nil, nil
	}

	containers, err := doc.QueryAll(questionContainer)
	if err != nil {
		return nil, fmt.Errorf("field: google forms discovery failed: %w", err)
	}

	var out []dom.Element
	seen := make(map[string]bool)
	for _, c := range containers {
		controls, err := c.QueryAll(TextControlSelector)
		if err != nil || len(controls) == 0 {
			continue
		}
		control := controls[0]
		id, ok := g.Identify(control)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, control)
	}
	return out, nil
}

// Identify returns the control's id, synthesizing one on first sight. The id
// is written to the element so later scans return the same value.
func (g *GoogleForms) Identify(el dom.Element) (string, bool) {
	if id := attrOf(el, "id"); id != "" {
		return id, true
	}

	id := g.synthesize(el)
	if err := el.SetAttr("id", id); err != nil {
		return "", false
	}
	return id, true
}

func (g *GoogleForms) synthesize(el dom.Element) string {
	if c, err := el.Closest(questionContainer); err == nil && c != nil {
		if m := entryTokenPattern.FindStringSubmatch(attrOf(c, "data-params")); m != nil {
			return IDPrefix + "entry-" + m[1]
		}
	}

	if aria := nonAlnum.ReplaceAllString(attrOf(el, "aria-label"), ""); aria != "" {
		if len(aria) > maxAriaIDLength {
			aria = aria[:maxAriaIDLength]
		}
		return IDPrefix + aria + "-" + g.Suffix()
	}

	return fmt.Sprintf("%s%d-%s", IDPrefix, g.Now().UnixMilli(), g.Suffix())
}

// Name resolves the label: question heading, then a non-generic aria-label,
// then placeholder.
func (g *GoogleForms) Name(el dom.Element) string {
	var heading string
	if c, err := el.Closest(questionContainer); err == nil && c != nil {
		if hs, err := c.QueryAll(questionHeading); err == nil && len(hs) > 0 {
			heading = strings.TrimSpace(strings.TrimSuffix(hs[0].Text(), "*"))
		}
	}

	aria := dom.NormalizeText(attrOf(el, "aria-label"))
	if aria == genericAnswerLabel {
		aria = ""
	}

	if name := firstNonEmpty(heading, aria, attrOf(el, "placeholder")); name != "" {
		return name
	}
	return UnknownQuestionLabel
}

// Fill replays the sequence Google Forms needs to accept a value: focus,
// input crossing shadow boundaries, change, then blur to run validation.
func (g *GoogleForms) Fill(el dom.Element, value string) error {
	if err := el.SetValue(value); err != nil {
		return fmt.Errorf("field: failed to set value: %w", err)
	}
	for _, ev := range []dom.Event{
		{Type: "focus"},
		{Type: "input", Init: dom.EventInit{Bubbles: true, Composed: true}},
		{Type: "change", Init: dom.EventInit{Bubbles: true}},
		{Type: "blur"},
	} {
		if err := el.Dispatch(ev); err != nil {
			return fmt.Errorf("field: failed to dispatch %s: %w", ev.Type, err)
		}
	}
	return nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
