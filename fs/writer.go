// Package fs writes finished ebooks to the local filesystem.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/artpub"
)

// Extension is the file extension of written ebooks.
const Extension = ".epub"

// DefaultName is the file name stem used when no usable title exists.
const DefaultName = "articles"

// EbookName returns the output file name: explicit when given, otherwise
// derived from title. The result is safe on common filesystems and ends
// in .epub.
func EbookName(explicit, title string) string {
	name := explicit
	if name == "" {
		name = title
	}
	name = strings.TrimSuffix(name, Extension)
	name = artpub.SafeFilename(name)
	if name == "" {
		name = DefaultName
	}
	return name + Extension
}

// Writer writes ebooks into a directory. The file appears atomically:
// readers see either nothing or the complete file.
type Writer struct {
	dir string
}

// NewWriter creates a new Writer that writes to dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteEbook writes data as name inside the output directory, creating
// the directory if needed, and returns the path of the written file.
// An existing file with the same name is replaced.
func (w *Writer) WriteEbook(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", artpub.Errorf(artpub.EINVALID, "invalid file name %q", name)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}

	path := filepath.Join(w.dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
