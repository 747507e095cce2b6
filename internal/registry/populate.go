package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/permodule/internal/config"
	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/module"
)

// AddModule creates a module and applies the optional name, tags and
// activation of def before it becomes visible in the registry.
func (r *Registry) AddModule(def config.ModuleDef) (*module.Module, error) {
	m, err := r.prepare(def.ID, def.Path)
	if err != nil {
		return nil, err
	}
	if err := m.AddTags(def.Tags...); err != nil {
		return nil, fmt.Errorf("module %q: %w", m.ID(), err)
	}
	m.Rename(def.Name)
	if def.Active != nil {
		m.Activate(*def.Active)
	}
	if err := r.insert(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Populate registers every module definition. Failing definitions are
// collected into one error; the others stay registered.
func (r *Registry) Populate(ctx context.Context, defs []config.ModuleDef) error {
	logger := ctxlog.FromContext(ctx)

	var errs []error
	for _, def := range defs {
		m, err := r.AddModule(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("Module registered.", "id", m.ID(), "name", m.Name(), "path", m.Path(), "active", m.Active(), "tags", m.Tags())
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry: %d of %d module definitions are invalid: %w", len(errs), len(defs), errors.Join(errs...))
	}
	return nil
}
