package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/entrhq/formless/pkg/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signupPage = `<html><head><title>Sign up</title></head><body>
<form>
  <label for="email">Email</label><input id="email" type="email">
  <input id="name" placeholder="Full name">
  <select id="color"><option value="r">Red</option><option value="b">Blue</option></select>
  <input type="hidden" id="token">
  <input type="submit" id="go">
</form>
</body></html>`

type recordingMatcher struct {
	resp matching.Response
	err  error
	reqs []matching.Request
}

func (m *recordingMatcher) Match(_ context.Context, req matching.Request) (matching.Response, error) {
	m.reqs = append(m.reqs, req)
	return m.resp, m.err
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(signupPage), 0600))
	return path
}

func TestRunScan_ListsFields(t *testing.T) {
	m := &recordingMatcher{}
	cfg := &CLIConfig{ScanFile: writePage(t), PageURL: "https://example.com/signup"}

	var out bytes.Buffer
	require.NoError(t, runScan(context.Background(), cfg, service{matcher: m}, &out))

	got := out.String()
	assert.Contains(t, got, "https://example.com/signup (standard adapter, 3 fields)")
	assert.Contains(t, got, "email")
	assert.Contains(t, got, "Full name")
	assert.Contains(t, got, "choice")
	assert.NotContains(t, got, "token")
	assert.Empty(t, m.reqs)
}

func TestRunScan_Match(t *testing.T) {
	m := &recordingMatcher{resp: matching.Response{MatchedFields: map[string]string{
		"Email":     "a@b.com",
		"Full name": "",
	}}}
	cfg := &CLIConfig{
		ScanFile: writePage(t),
		PageURL:  "https://example.com/signup",
		Match:    true,
		Prompt:   "be formal",
		Context:  "job application",
	}

	var out bytes.Buffer
	require.NoError(t, runScan(context.Background(), cfg, service{matcher: m}, &out))

	require.Len(t, m.reqs, 1)
	req := m.reqs[0]
	assert.Equal(t, []string{"Email", "Full name", "color"}, req.ParsedFields)
	assert.Equal(t, "job application", req.Context)
	assert.Equal(t, map[string]string{"Email": "be formal", "Full name": "be formal", "color": "be formal"}, req.UserPrompts)

	assert.Contains(t, out.String(), "Email: a@b.com\n")
	assert.NotContains(t, out.String(), "Full name:")
}

func TestRunScan_NoMatches(t *testing.T) {
	m := &recordingMatcher{resp: matching.Response{MatchedFields: map[string]string{}}}
	cfg := &CLIConfig{ScanFile: writePage(t), PageURL: "https://example.com", Match: true}

	var out bytes.Buffer
	require.NoError(t, runScan(context.Background(), cfg, service{matcher: m}, &out))
	assert.Contains(t, out.String(), "No matching memories found.")
	assert.Nil(t, m.reqs[0].UserPrompts)
}

func TestRunScan_MatchError(t *testing.T) {
	m := &recordingMatcher{err: &matching.StatusError{Code: 502, Detail: "upstream down"}}
	cfg := &CLIConfig{ScanFile: writePage(t), PageURL: "https://example.com", Match: true}

	err := runScan(context.Background(), cfg, service{matcher: m}, &bytes.Buffer{})
	var se *matching.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upstream down", se.Detail)
}

func TestRunScan_MissingFile(t *testing.T) {
	cfg := &CLIConfig{ScanFile: filepath.Join(t.TempDir(), "nope.html")}
	err := runScan(context.Background(), cfg, service{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatMatches(t *testing.T) {
	resp := matching.Response{MatchedFields: map[string]string{"b": "2", "a": "1", "c": ""}}
	assert.Equal(t, "a: 1\nb: 2\n", formatMatches([]string{"a", "b", "c", "d"}, resp))
	assert.Equal(t, "", formatMatches(nil, resp))
}
