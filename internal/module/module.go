// Package module defines a named sub-unit of a workspace: its identity,
// location, display name, activation and tags.
package module

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrInvalidID is returned for an id that is blank after trimming.
	ErrInvalidID = errors.New("module id must not be empty")
	// ErrInvalidPath is returned for a path that is blank after trimming.
	ErrInvalidPath = errors.New("module path must not be empty")
	// ErrInvalidTag is returned for a tag that is blank after trimming.
	ErrInvalidTag = errors.New("module tag must not be empty")
)

// Module is a named sub-unit of a workspace. Identity and location are fixed
// at construction; name, activation and tags may change while the module is
// being evaluated concurrently.
type Module struct {
	id           string
	rawPath      string
	resolvedPath string

	mu     sync.RWMutex
	name   string
	active bool
	tags   map[string]struct{}
}

// New builds a module with the given identity. The id and raw path are
// trimmed and validated; resolvedPath is stored as given.
func New(id, rawPath, resolvedPath string) (*Module, error) {
	id, err := ValidateID(id)
	if err != nil {
		return nil, err
	}
	rawPath, err = ValidatePath(rawPath)
	if err != nil {
		return nil, err
	}
	return &Module{
		id:           id,
		rawPath:      rawPath,
		resolvedPath: resolvedPath,
		active:       true,
		tags:         make(map[string]struct{}),
	}, nil
}

// ValidateID trims id and rejects blank values.
func ValidateID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return id, nil
}

// ValidatePath trims p and rejects blank values.
func ValidatePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrInvalidPath
	}
	return p, nil
}

// ValidateTag trims tag and rejects blank values.
func ValidateTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", ErrInvalidTag
	}
	return tag, nil
}

// ValidateTags validates every tag and returns the trimmed forms.
func ValidateTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for i, tag := range tags {
		v, err := ValidateTag(tag)
		if err != nil {
			return nil, fmt.Errorf("tag #%d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ID returns the immutable module id.
func (m *Module) ID() string { return m.id }

// RawPath returns the path exactly as it was declared, trimmed.
func (m *Module) RawPath() string { return m.rawPath }

// Path returns the resolved workspace location, or "" if unresolved.
func (m *Module) Path() string { return m.resolvedPath }

// Name returns the display name, falling back to the id.
func (m *Module) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.name == "" {
		return m.id
	}
	return m.name
}

// Rename sets the display name. A blank name resets it to the id.
func (m *Module) Rename(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = strings.TrimSpace(name)
}

// Active reports whether the module is active.
func (m *Module) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Activate sets the activation state.
func (m *Module) Activate(state bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = state
}

// Tags returns a sorted copy of the module's tags.
func (m *Module) Tags() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tags))
	for tag := range m.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// AddTags adds tags to the module. Nothing is added if any tag is invalid.
func (m *Module) AddTags(tags ...string) error {
	valid, err := ValidateTags(tags)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range valid {
		m.tags[tag] = struct{}{}
	}
	return nil
}

// HasTag reports whether the module carries tag.
func (m *Module) HasTag(tag string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tags[tag]
	return ok
}

// HasAllTags reports whether every tag is present. An empty list is
// satisfied trivially.
func (m *Module) HasAllTags(tags []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tag := range tags {
		if _, ok := m.tags[tag]; !ok {
			return false
		}
	}
	return true
}

// HasAnyTag reports whether at least one tag is present.
func (m *Module) HasAnyTag(tags []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tag := range tags {
		if _, ok := m.tags[tag]; ok {
			return true
		}
	}
	return false
}

// String returns a short human-readable form used in logs.
func (m *Module) String() string {
	return fmt.Sprintf("Module[id=%s, name=%s, path=%s]", m.id, m.Name(), m.rawPath)
}
