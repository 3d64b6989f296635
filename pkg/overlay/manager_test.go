package overlay

import (
	"errors"
	"testing"
	"time"

	"github.com/entrhq/formless/pkg/dom"
	"github.com/entrhq/formless/pkg/dom/htmldoc"
	"github.com/entrhq/formless/pkg/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const formPage = `<html><body>
<form id="form">
  <label for="email">Your email</label><input id="email" type="email">
  <label for="name">Name</label><input id="name">
  <label for="notes">Notes</label><textarea id="notes"></textarea>
</form>
</body></html>`

type recordingNotifier struct {
	notices []string
}

func (n *recordingNotifier) Notice(msg string) {
	n.notices = append(n.notices, msg)
}

func syncOptions() Options {
	o := DefaultOptions()
	o.DebounceDelay = 0
	return o
}

func enabled(t *testing.T, src string) (*htmldoc.Page, *Manager, *recordingNotifier) {
	t.Helper()
	page, err := htmldoc.ParseString("https://example.com/form", src)
	require.NoError(t, err)

	n := &recordingNotifier{}
	m := NewManager(page, syncOptions(), n)
	require.NoError(t, m.Enable())
	page.Flush()
	return page, m, n
}

func buttons(t *testing.T, page *htmldoc.Page) []dom.Element {
	t.Helper()
	els, err := page.QueryAll(`button[data-formless-overlay]`)
	require.NoError(t, err)
	return els
}

func TestManager_Enable(t *testing.T) {
	page, m, n := enabled(t, formPage)
	defer m.Disable()

	assert.Equal(t, Active, m.State())
	assert.Equal(t, 3, m.Len())
	// mutation + viewport, then intersection + click per field
	assert.Equal(t, 2+3*2, m.Watchers())
	assert.Equal(t, m.Watchers(), page.ActiveObservers())
	assert.Empty(t, n.notices)

	btns := buttons(t, page)
	require.Len(t, btns, 3)
	id, _ := btns[0].Attr(dom.FieldAttr)
	assert.Equal(t, "email", id)
	typ, _ := btns[0].Attr("type")
	assert.Equal(t, "button", typ)

	a, ok := m.Affordance("email")
	require.True(t, ok)
	assert.True(t, a.Visible)
	assert.Equal(t, float64(16+32-24-4), a.Top)
	assert.Equal(t, float64(16+320-24-4), a.Left)
	style, _ := a.Button().Attr("style")
	assert.Contains(t, style, "top:20px")
	assert.Contains(t, style, "display:block")

	// enabling twice changes nothing
	require.NoError(t, m.Enable())
	assert.Equal(t, 3, m.Len())
}

func TestManager_DisableReleasesEverything(t *testing.T) {
	page, m, _ := enabled(t, formPage)

	// churn: add a field, scroll, remove a field
	_, err := page.AppendHTML(page.MustQuery("#form"), `<input id="city" placeholder="City">`)
	require.NoError(t, err)
	page.Flush()
	page.ScrollTo(0, 300)
	page.Flush()
	require.NoError(t, page.MustQuery("#name").Remove())
	page.Flush()

	require.NoError(t, m.Disable())
	page.Flush()

	assert.Equal(t, Disabled, m.State())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.Watchers())
	assert.Equal(t, 0, page.ActiveObservers())
	assert.Empty(t, buttons(t, page))

	// a second cycle starts clean
	require.NoError(t, m.Enable())
	page.Flush()
	assert.Equal(t, 3, m.Len())
	require.NoError(t, m.Disable())
	assert.Equal(t, 0, page.ActiveObservers())
	assert.NoError(t, m.Disable())
}

func TestManager_SelfExclusion(t *testing.T) {
	page, m, _ := enabled(t, `<html><body>
		<input id="real">
		<div data-formless-overlay="panel"><input id="search"><textarea id="prompt"></textarea></div>
	</body></html>`)
	defer m.Disable()

	assert.Equal(t, 1, m.Len())
	_, ok := m.Lookup("search")
	assert.False(t, ok)

	// overlay UI added later is ignored as well
	_, err := page.AppendHTML(nil, `<div data-formless-overlay="picker"><input id="filter"></div>`)
	require.NoError(t, err)
	page.Flush()
	assert.Equal(t, 1, m.Len())

	for _, a := range m.Affordances() {
		assert.False(t, dom.IsOverlay(a.Field.Element))
	}
}

func TestManager_RescanNeverDuplicates(t *testing.T) {
	page, m, _ := enabled(t, formPage)
	defer m.Disable()

	_, err := page.AppendHTML(page.MustQuery("#form"), `<input id="city"><input id="zip">`)
	require.NoError(t, err)
	page.Flush()
	assert.Equal(t, 5, m.Len())

	added, err := m.Rescan()
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 5, m.Len())
	assert.Len(t, buttons(t, page), 5)
}

func TestManager_DetachRetiresBeforeReposition(t *testing.T) {
	page, m, _ := enabled(t, formPage)
	defer m.Disable()

	before := m.Watchers()
	require.NoError(t, page.MustQuery("#email").Remove())
	// the mutation watcher runs at the next checkpoint, before any scroll
	page.Flush()

	assert.Equal(t, 2, m.Len())
	_, ok := m.Lookup("email")
	assert.False(t, ok)
	assert.Equal(t, before-2, m.Watchers())
	assert.Len(t, buttons(t, page), 2)

	page.ScrollTo(0, 10)
	page.Flush()
	assert.Equal(t, 2, m.Len())
}

func TestManager_NoFields(t *testing.T) {
	page, m, n := enabled(t, `<html><body><p>nothing here</p></body></html>`)
	defer m.Disable()

	assert.Equal(t, Active, m.State())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, []string{NoFieldsNotice}, n.notices)

	// a field showing up later is still picked up
	_, err := page.AppendHTML(nil, `<input id="late">`)
	require.NoError(t, err)
	page.Flush()
	assert.Equal(t, 1, m.Len())
}

func TestManager_ViewportRepositions(t *testing.T) {
	page, m, _ := enabled(t, formPage)
	defer m.Disable()

	page.ScrollTo(0, 100)
	page.Flush()

	a, ok := m.Affordance("name")
	require.True(t, ok)
	// document coordinates do not move with the scroll
	assert.Equal(t, float64(64+32-24-4), a.Top)

	page.SetBox(page.MustQuery("#name"), dom.Rect{X: 16, Y: 5000, Width: 320, Height: 32})
	page.ScrollTo(0, 0)
	page.Flush()
	a, _ = m.Affordance("name")
	assert.False(t, a.Visible)
	style, _ := a.Button().Attr("style")
	assert.Contains(t, style, "display:none")

	page.ScrollTo(0, 4800)
	page.Flush()
	a, _ = m.Affordance("name")
	assert.True(t, a.Visible)
	assert.Equal(t, float64(5032-28), a.Top)
}

func TestManager_ClickActivates(t *testing.T) {
	page, m, _ := enabled(t, formPage)
	defer m.Disable()

	var got []field.Field
	m.OnActivate(func(f field.Field) { got = append(got, f) })

	a, _ := m.Affordance("notes")
	page.Click(a.Button())
	page.Flush()

	require.Len(t, got, 1)
	assert.Equal(t, "notes", got[0].ID)
	assert.Equal(t, "Notes", got[0].Label)
}

func TestManager_FieldSource(t *testing.T) {
	_, m, _ := enabled(t, formPage)

	f, ok := m.Lookup("email")
	require.True(t, ok)
	assert.Equal(t, "Your email", m.NameOf(f))

	fields, err := m.Discover()
	require.NoError(t, err)
	assert.Len(t, fields, 3)

	require.NoError(t, m.Disable())
	_, err = m.Discover()
	assert.True(t, errors.Is(err, ErrNotActive))
	_, err = m.Rescan()
	assert.True(t, errors.Is(err, ErrNotActive))
	assert.Equal(t, "Your email", m.NameOf(f))
}

// failingDoc fails the viewport watch after the scan has injected buttons.
type failingDoc struct {
	*htmldoc.Page
}

func (d failingDoc) ObserveViewport(func(dom.ViewportEvent)) (dom.Subscription, error) {
	return nil, errors.New("boom")
}

func TestManager_FailedEnableReleasesEverything(t *testing.T) {
	page, err := htmldoc.ParseString("https://example.com/form", formPage)
	require.NoError(t, err)

	m := NewManager(failingDoc{page}, syncOptions(), nil)
	err = m.Enable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	page.Flush()
	assert.Equal(t, Disabled, m.State())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.Watchers())
	assert.Equal(t, 0, page.ActiveObservers())
	assert.Empty(t, buttons(t, page))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "enabling", Enabling.String())
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "disabling", Disabling.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestManager_DebouncedViewport(t *testing.T) {
	page, err := htmldoc.ParseString("https://example.com/form", formPage)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DebounceDelay = 10 * time.Millisecond
	m := NewManager(page, opts, nil)
	require.NoError(t, m.Enable())
	defer m.Disable()
	page.Flush()

	// moves within the viewport raise no intersection entry
	page.SetBox(page.MustQuery("#email"), dom.Rect{X: 16, Y: 100, Width: 320, Height: 32})
	for y := 1.0; y <= 5; y++ {
		page.ScrollTo(0, y)
	}
	page.Flush()

	require.Eventually(t, func() bool {
		a, _ := m.Affordance("email")
		return a.Top == 132-28
	}, time.Second, 5*time.Millisecond)
}
