package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/permodule/internal/module"
	"github.com/specialistvlad/permodule/internal/selector"
	"github.com/specialistvlad/permodule/internal/workspace"
)

// Option configures a Registry.
type Option func(*Registry)

// WithResolver overrides the path resolver. The default is workspace.OS.
func WithResolver(r workspace.Resolver) Option {
	return func(reg *Registry) {
		reg.resolver = r
	}
}

// Registry holds the modules of one pipeline scope.
type Registry struct {
	root     string
	resolver workspace.Resolver

	mu    sync.RWMutex
	byID  map[string]*module.Module
	order []*module.Module
}

// New creates an empty registry rooted at root.
func New(root string, opts ...Option) (*Registry, error) {
	abs, err := workspace.Root(root)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	r := &Registry{
		root:     abs,
		resolver: workspace.OS{},
		byID:     make(map[string]*module.Module),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the absolute workspace root.
func (r *Registry) Root() string { return r.root }

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// CreateModule validates, resolves and registers a new module. The registry
// is left untouched when any check fails.
func (r *Registry) CreateModule(id, rawPath string) (*module.Module, error) {
	m, err := r.prepare(id, rawPath)
	if err != nil {
		return nil, err
	}
	if err := r.insert(m); err != nil {
		return nil, err
	}
	return m, nil
}

// prepare builds a module without registering it.
func (r *Registry) prepare(id, rawPath string) (*module.Module, error) {
	id, err := module.ValidateID(id)
	if err != nil {
		return nil, err
	}
	rawPath, err = module.ValidatePath(rawPath)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", id, err)
	}
	if r.exists(id) {
		return nil, &DuplicateIDError{ID: id}
	}

	resolved, err := r.resolver.Resolve(r.root, rawPath)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", id, err)
	}
	if !workspace.IsDescendant(r.root, resolved) {
		return nil, &PathOutsideWorkspaceError{ID: id, Path: rawPath, Resolved: resolved, Root: r.root}
	}
	return module.New(id, rawPath, resolved)
}

func (r *Registry) exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// insert re-checks the id under the write lock, since prepare ran unlocked.
func (r *Registry) insert(m *module.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.ID()]; ok {
		return &DuplicateIDError{ID: m.ID()}
	}
	r.byID[m.ID()] = m
	r.order = append(r.order, m)
	return nil
}

// Module returns the module registered under id.
func (r *Registry) Module(id string) (*module.Module, error) {
	id, err := module.ValidateID(id)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return m, nil
}

// snapshot copies the creation-ordered module list.
func (r *Registry) snapshot() []*module.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*module.Module, len(r.order))
	copy(out, r.order)
	return out
}

// Modules returns the modules matching pred in creation order. A nil
// predicate selects every module.
func (r *Registry) Modules(pred selector.Predicate) []*module.Module {
	all := r.snapshot()
	if pred == nil {
		return all
	}
	out := make([]*module.Module, 0, len(all))
	for _, m := range all {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// TrueForAll reports whether pred holds for every module. A nil predicate
// is false; an empty registry satisfies any non-nil predicate.
func (r *Registry) TrueForAll(pred selector.Predicate) bool {
	if pred == nil {
		return false
	}
	for _, m := range r.snapshot() {
		if !pred(m) {
			return false
		}
	}
	return true
}

// TrueForAny reports whether pred holds for at least one module. A nil
// predicate is false.
func (r *Registry) TrueForAny(pred selector.Predicate) bool {
	if pred == nil {
		return false
	}
	for _, m := range r.snapshot() {
		if pred(m) {
			return true
		}
	}
	return false
}

// Match chooses between the all-of and any-of registry checks.
type Match int

const (
	// MatchAny is satisfied when at least one module matches.
	MatchAny Match = iota
	// MatchAll is satisfied when every module matches.
	MatchAll
)

func (m Match) String() string {
	if m == MatchAll {
		return "ALL"
	}
	return "ANY"
}

// ParseMatch parses "ALL" or "ANY" case-insensitively. Blank means ANY.
func ParseMatch(s string) (Match, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ANY":
		return MatchAny, nil
	case "ALL":
		return MatchAll, nil
	default:
		return MatchAny, fmt.Errorf("registry: unknown match %q: must be 'ALL' or 'ANY'", s)
	}
}

// Check evaluates pred against the registry using match.
func (r *Registry) Check(match Match, pred selector.Predicate) bool {
	if match == MatchAll {
		return r.TrueForAll(pred)
	}
	return r.TrueForAny(pred)
}

// CheckModule evaluates pred against the single module registered under id.
func (r *Registry) CheckModule(id string, pred selector.Predicate) (bool, error) {
	m, err := r.Module(id)
	if err != nil {
		return false, err
	}
	if pred == nil {
		return false, nil
	}
	return pred(m), nil
}

// RelPath returns the path of to relative to from.
func (r *Registry) RelPath(from, to *module.Module) (string, error) {
	if from == nil || to == nil || from.Path() == "" || to.Path() == "" {
		return "", ErrUnresolved
	}
	return workspace.Rel(from.Path(), to.Path())
}

// RelPathByID is RelPath for modules looked up by id.
func (r *Registry) RelPathByID(fromID, toID string) (string, error) {
	from, err := r.Module(fromID)
	if err != nil {
		return "", err
	}
	to, err := r.Module(toID)
	if err != nil {
		return "", err
	}
	return r.RelPath(from, to)
}
