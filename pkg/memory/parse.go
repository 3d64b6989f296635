package memory

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// meta is the YAML front-matter of a memory file; the value is the body.
type meta struct {
	ID        string    `yaml:"id"`
	Intent    string    `yaml:"intent"`
	Type      Type      `yaml:"type"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Parse decodes a memory file.
func Parse(raw []byte) (Record, error) {
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(s, frontMatterDelimiter+"\n") {
		return Record{}, fmt.Errorf("memory: missing front-matter delimiter")
	}
	rest := s[len(frontMatterDelimiter)+1:]
	idx := strings.Index(rest, "\n"+frontMatterDelimiter+"\n")
	if idx == -1 {
		return Record{}, fmt.Errorf("memory: unclosed front-matter block")
	}

	var m meta
	if err := yaml.Unmarshal([]byte(rest[:idx]), &m); err != nil {
		return Record{}, fmt.Errorf("memory: front-matter parse error: %w", err)
	}
	if m.ID == "" {
		return Record{}, fmt.Errorf("memory: front-matter has no id")
	}

	body := rest[idx+len(frontMatterDelimiter)+2:]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimSuffix(body, "\n")

	return Record{
		ID:        m.ID,
		Intent:    m.Intent,
		Value:     body,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// Serialize renders a record as markdown with YAML front-matter.
func Serialize(r Record) ([]byte, error) {
	y, err := yaml.Marshal(&meta{
		ID:        r.ID,
		Intent:    r.Intent,
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: serialize error: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.Write(y)
	sb.WriteString(frontMatterDelimiter + "\n\n")
	sb.WriteString(r.Value)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}
