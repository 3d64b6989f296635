package fill

import (
	"errors"
	"testing"

	"github.com/entrhq/formless/pkg/dom/htmldoc"
	"github.com/entrhq/formless/pkg/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
  <label for="name">Name</label><input id="name">
  <label for="email">Email</label><input id="email" type="email" value="keep@me.com">
  <label for="city">City</label><input id="city">
  <label for="size">Size</label>
  <select id="size"><option value="s">Small</option><option value="m">Medium</option></select>
</body></html>`

func discover(t *testing.T) (*htmldoc.Page, []field.Field) {
	t.Helper()
	p, err := htmldoc.ParseString("https://example.com", page)
	require.NoError(t, err)
	r, err := field.NewResolver(p)
	require.NoError(t, err)
	fields, err := r.Discover()
	require.NoError(t, err)
	require.Len(t, fields, 4)
	return p, fields
}

func value(t *testing.T, f field.Field) string {
	t.Helper()
	v, err := f.Element.Value()
	require.NoError(t, err)
	return v
}

func TestExecutor_Fill(t *testing.T) {
	p, fields := discover(t)
	e := NewExecutor(field.DefaultAdapters()...)

	require.NoError(t, e.Fill(fields[0], "Ada"))
	assert.Equal(t, "Ada", value(t, fields[0]))
	assert.Equal(t, []string{"input", "change"}, p.EventTypes(fields[0].Element))
}

func TestExecutor_FillErrors(t *testing.T) {
	_, fields := discover(t)
	e := NewExecutor(field.DefaultAdapters()...)

	err := e.Fill(fields[1], "")
	assert.True(t, errors.Is(err, ErrEmptyValue))
	assert.Equal(t, "keep@me.com", value(t, fields[1]))

	err = e.Fill(fields[3], "extra large")
	assert.True(t, errors.Is(err, ErrNoOption))
	assert.Equal(t, "s", value(t, fields[3]))

	require.NoError(t, fields[2].Element.Remove())
	err = e.Fill(fields[2], "Paris")
	assert.True(t, errors.Is(err, ErrDetached))

	err = NewExecutor().Fill(fields[0], "Ada")
	assert.True(t, errors.Is(err, ErrNoAdapter))
}

func TestExecutor_FillChoice(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"m", "m"},
		{"MEDIUM", "m"},
		{" small ", "s"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			_, fields := discover(t)
			e := NewExecutor(field.DefaultAdapters()...)

			require.NoError(t, e.Fill(fields[3], tt.value))
			assert.Equal(t, tt.want, value(t, fields[3]))
		})
	}
}

func TestExecutor_FillAll_PartialResponse(t *testing.T) {
	p, fields := discover(t)
	fields = fields[:3]
	e := NewExecutor(field.DefaultAdapters()...)

	// the batch scenario: three fields, values for two
	require.NoError(t, fields[1].Element.SetValue(""))
	report := e.FillAll(fields, map[string]string{
		"Name":  "Ada",
		"City":  "London",
		"Email": "",
	})

	assert.Equal(t, 2, report.Filled())
	assert.Equal(t, 1, report.Count(StatusEmpty))
	assert.Equal(t, "Ada", value(t, fields[0]))
	assert.Equal(t, "", value(t, fields[1]))
	assert.Equal(t, "London", value(t, fields[2]))
	assert.Empty(t, p.Events(fields[1].Element))
	for _, r := range report.Results {
		assert.NoError(t, r.Err)
	}
}

func TestExecutor_FillAll_SkipsDetached(t *testing.T) {
	_, fields := discover(t)
	e := NewExecutor(field.DefaultAdapters()...)

	require.NoError(t, fields[0].Element.Remove())
	report := e.FillAll(fields, map[string]string{
		"Name":  "Ada",
		"Email": "a@b.com",
		"City":  "Rome",
		"Size":  "huge",
	})

	require.Len(t, report.Results, 4)
	assert.Equal(t, StatusSkipped, report.Results[0].Status)
	assert.Equal(t, StatusFilled, report.Results[1].Status)
	assert.Equal(t, StatusFilled, report.Results[2].Status)
	assert.Equal(t, StatusFailed, report.Results[3].Status)
	assert.True(t, errors.Is(report.Results[3].Err, ErrNoOption))
}
