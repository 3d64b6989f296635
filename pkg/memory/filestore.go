package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps one markdown file per memory in a directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("memory: init directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory the store writes to.
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) pathForID(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("memory: invalid id (empty)")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("memory: invalid id %q", id)
	}
	dir, err := filepath.Abs(fs.dir)
	if err != nil {
		return "", fmt.Errorf("memory: abs dir: %w", err)
	}
	return filepath.Join(dir, id+".md"), nil
}

// List returns every readable memory, oldest first. Corrupt files are skipped.
func (fs *FileStore) List(_ context.Context) ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("memory: list %s: %w", fs.dir, err)
	}

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		path := filepath.Join(fs.dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("memory: skipping unreadable file", "path", path, "err", err)
			continue
		}
		r, err := Parse(b)
		if err != nil {
			slog.Debug("memory: skipping corrupt file", "path", path, "err", err)
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (fs *FileStore) Get(_ context.Context, id string) (Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.read(id)
}

func (fs *FileStore) Create(_ context.Context, in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := fs.now().UTC()
	r := Record{
		ID:        uuid.NewString(),
		Intent:    strings.TrimSpace(in.Intent),
		Value:     in.Value,
		Type:      in.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := fs.write(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (fs *FileStore) Update(_ context.Context, id string, in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	r, err := fs.read(id)
	if err != nil {
		return Record{}, err
	}
	r.Intent = strings.TrimSpace(in.Intent)
	r.Value = in.Value
	r.Type = in.Type
	r.UpdatedAt = fs.now().UTC()
	if err := fs.write(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (fs *FileStore) Delete(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.pathForID(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("memory: delete %s: %w", path, err)
	}
	return nil
}

func (fs *FileStore) read(id string) (Record, error) {
	path, err := fs.pathForID(id)
	if err != nil {
		return Record{}, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("memory: read %s: %w", path, err)
	}
	return Parse(b)
}

// write replaces the record's file atomically through a temp file.
func (fs *FileStore) write(r Record) error {
	b, err := Serialize(r)
	if err != nil {
		return err
	}
	path, err := fs.pathForID(r.ID)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("memory: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("memory: atomic rename %s: %w", path, err)
	}
	return nil
}
