package output

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Writer persists YAML documents into a single output directory. One call
// to WriteDocument produces one file. The zero value is not usable; create
// instances with NewWriter.
type Writer struct {
	dir   string
	count int
}

// NewWriter creates a writer rooted at dir, creating the directory if it
// does not exist yet.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory path.
func (w *Writer) Dir() string { return w.dir }

// Path returns the full path a document with the given name is written to.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name+".yaml")
}

// WriteDocument marshals doc to YAML and writes it to <dir>/<name>.yaml.
// The write is atomic: content goes to a temp file in the same directory
// which is renamed into place only after a successful write.
func (w *Writer) WriteDocument(name string, doc any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", name, err)
	}
	return w.WriteBytes(name, data)
}

// WriteBytes writes pre-serialized content to <dir>/<name>.yaml atomically.
func (w *Writer) WriteBytes(name string, data []byte) error {
	final := w.Path(name)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", final, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", final, err)
	}

	w.count++
	return nil
}

// Count returns the number of documents written.
func (w *Writer) Count() int { return w.count }
