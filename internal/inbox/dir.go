// Package inbox imports Markdown files dropped into a directory as notes.
package inbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir gives path-checked access to the inbox directory.
type Dir struct {
	root string // absolute path to inbox directory
}

// NewDir creates the inbox directory if needed and returns a Dir rooted at it.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("inbox: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("inbox: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("inbox: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute inbox path.
func (d *Dir) Root() string {
	return d.root
}

// safePath resolves a relative path against the inbox root and rejects
// any result that escapes it.
func (d *Dir) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("inbox: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(d.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("inbox: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("inbox: path escapes inbox root: %s", rel)
	}
	return abs, nil
}

// Rel converts an absolute path under the root into a relative one.
func (d *Dir) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(d.root, abs)
	if err != nil {
		return "", err
	}
	if _, err := d.safePath(rel); err != nil {
		return "", err
	}
	return rel, nil
}

// List returns the relative paths of every importable file under dir,
// sorted so that imports happen in a stable order.
func (d *Dir) List(dir string) ([]string, error) {
	base := d.root
	if dir != "" {
		var err error
		if base, err = d.safePath(dir); err != nil {
			return nil, err
		}
	}
	var out []string
	err := filepath.WalkDir(base, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if e.IsDir() || !Importable(e.Name()) {
			return nil
		}
		rel, _ := filepath.Rel(d.root, p)
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inbox: list: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// Read returns the raw bytes of an inbox file.
func (d *Dir) Read(path string) ([]byte, error) {
	abs, err := d.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("inbox: read %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes an imported file.
func (d *Dir) Remove(path string) error {
	abs, err := d.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("inbox: remove %s: %w", path, err)
	}
	return nil
}

// Importable reports whether a file name is picked up by the inbox. Hidden
// files are skipped so editors can write temp files next to a note.
func Importable(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".md") && !strings.HasPrefix(base, ".")
}
