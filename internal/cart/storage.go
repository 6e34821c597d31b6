package cart

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Storage persists cart lines between sessions. The persisted form is a
// plain JSON array of lines, the same shape the original web storefront
// kept under its localStorage key, so existing carts keep restoring.
type Storage interface {
	Load() ([]Line, error)
	Save(lines []Line) error
}

// FileStorage persists the cart as a JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file-backed storage at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads and decodes the persisted cart. A missing file is not an
// error state worth distinguishing here; it still returns an error so the
// store can degrade to an empty cart either way.
func (f *FileStorage) Load() ([]Line, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decoding cart file: %w", err)
	}
	return lines, nil
}

// Save writes the cart atomically: encode to a temp file in the same
// directory, then rename over the destination.
func (f *FileStorage) Save(lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}

	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating cart dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cart-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing cart file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cart file: %w", err)
	}
	return nil
}

// MemoryStorage keeps cart lines in memory. Used by tests and for sessions
// without a persistent identity.
type MemoryStorage struct {
	lines []Line

	// LoadErr and SaveErr force failures in tests.
	LoadErr error
	SaveErr error
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the stored lines.
func (m *MemoryStorage) Load() ([]Line, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out, nil
}

// Save replaces the stored lines.
func (m *MemoryStorage) Save(lines []Line) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.lines = make([]Line, len(lines))
	copy(m.lines, lines)
	return nil
}
