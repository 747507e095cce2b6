// Package workspace resolves module paths against a workspace root and
// answers containment questions about them.
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEmptyPath is returned when a root or path is blank.
var ErrEmptyPath = errors.New("workspace: empty path")

// Resolver maps a raw, possibly relative, path onto an absolute location
// under a workspace root.
type Resolver interface {
	Resolve(root, p string) (string, error)
}

// OS resolves paths lexically on the local file system. It never touches
// the disk, so modules may reference directories that do not exist yet.
type OS struct{}

// Resolve returns p as an absolute, cleaned path. Relative paths are joined
// onto root first.
func (OS) Resolve(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsAbs(p) {
		if strings.TrimSpace(root) == "" {
			return "", ErrEmptyPath
		}
		p = filepath.Join(root, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve %q: %w", p, err)
	}
	return abs, nil
}

// Root returns the absolute, cleaned form of a workspace root.
func Root(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", ErrEmptyPath
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve root %q: %w", root, err)
	}
	return abs, nil
}

// IsDescendant reports whether p lies inside root. The root counts as its
// own descendant.
func IsDescendant(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Rel returns the path of to relative to from, or "." when they are equal.
func Rel(from, to string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(from), filepath.Clean(to))
	if err != nil {
		return "", fmt.Errorf("workspace: relative path from %q to %q: %w", from, to, err)
	}
	return rel, nil
}
