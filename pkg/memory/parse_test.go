package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	rec := Record{
		ID:        "m-1",
		Intent:    "cover letter",
		Value:     "Write a short cover letter.\nMention Go.",
		Type:      TypePrompt,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Hour),
	}

	b, err := Serialize(rec)
	require.NoError(t, err)
	assert.Contains(t, string(b), "intent: cover letter")

	parsed, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, rec, parsed)
}

func TestParse_CRLF(t *testing.T) {
	raw := "---\r\nid: m-2\r\nintent: email\r\ntype: text\r\n---\r\n\r\nada@example.com\r\n"
	rec, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "m-2", rec.ID)
	assert.Equal(t, "email", rec.Intent)
	assert.Equal(t, TypeText, rec.Type)
	assert.Equal(t, "ada@example.com", rec.Value)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  string
	}{
		{"missing delimiter", "just some text", "missing front-matter delimiter"},
		{"unclosed block", "---\nid: x\nno closing delimiter", "unclosed front-matter block"},
		{"bad yaml", "---\nid: [\n---\nbody", "front-matter parse error"},
		{"no id", "---\nintent: email\n---\nbody", "has no id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestInputValidate(t *testing.T) {
	assert.NoError(t, Input{Intent: "email", Type: TypeText}.Validate())
	assert.ErrorIs(t, Input{Intent: "  ", Type: TypeText}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Input{Intent: "email", Type: "html"}.Validate(), ErrInvalid)
}

func TestFilterIntents(t *testing.T) {
	records := []Record{
		{ID: "1", Intent: "email"},
		{ID: "2", Intent: "phone"},
		{ID: "3", Intent: "email"},
	}

	assert.Len(t, FilterIntents(records, nil), 3)
	assert.Empty(t, FilterIntents(records, []string{}))

	got := FilterIntents(records, []string{"email"})
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	assert.Equal(t, []string{"email", "phone"}, Intents(records))
}
