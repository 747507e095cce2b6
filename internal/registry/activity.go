package registry

import (
	"github.com/specialistvlad/permodule/internal/module"
	"github.com/specialistvlad/permodule/internal/selector"
)

// ModulesByID returns the modules with the given ids, in the order the ids
// are listed. Unknown and repeated ids are skipped. An empty list returns
// every module in creation order.
func (r *Registry) ModulesByID(ids []string) []*module.Module {
	if len(ids) == 0 {
		return r.snapshot()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(ids))
	out := make([]*module.Module, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m, ok := r.byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// ActiveModules returns every active module in creation order.
func (r *Registry) ActiveModules() []*module.Module {
	return r.Modules(selector.Active(true))
}

// AnyActive reports whether at least one module is active.
func (r *Registry) AnyActive() bool {
	return r.TrueForAny(selector.Active(true))
}

// IsActive reports whether the module registered under id is active.
// Unknown ids are reported as inactive.
func (r *Registry) IsActive(id string) bool {
	m, err := r.Module(id)
	if err != nil {
		return false
	}
	return m.Active()
}

// SelectionActive reports whether any module among ids is active. An empty
// list considers every module.
func (r *Registry) SelectionActive(ids []string) bool {
	for _, m := range r.ModulesByID(ids) {
		if m.Active() {
			return true
		}
	}
	return false
}
