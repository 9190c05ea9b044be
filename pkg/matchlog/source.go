package matchlog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrSourceNotAllowed is returned for a source outside the permitted directory
var ErrSourceNotAllowed = errors.New("match log source not allowed")

// ResolveWithin returns the absolute path of source when it names a file
// inside dir. URLs, paths escaping dir (through ".." or symlinks) and an
// empty dir are all rejected.
func ResolveWithin(dir, source string) (string, error) {
	if dir == "" || source == "" || isURL(source) || strings.Contains(source, "://") {
		return "", fmt.Errorf("%w: %s", ErrSourceNotAllowed, source)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceNotAllowed, source)
	}
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}

	path := source
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = resolveExisting(filepath.Clean(path))

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrSourceNotAllowed, source)
	}
	return path, nil
}

// LoadWithin loads source only when it resolves inside dir
func LoadWithin(ctx context.Context, dir, source string) (*Table, error) {
	path, err := ResolveWithin(dir, source)
	if err != nil {
		return nil, err
	}
	return Load(ctx, path)
}

// resolveExisting evaluates symlinks in the longest existing prefix of path,
// so a missing file below a linked directory still resolves to its target
func resolveExisting(path string) string {
	var rest []string
	for dir := path; ; dir = filepath.Dir(dir) {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{real}, rest...)...)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return path
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
	}
}
