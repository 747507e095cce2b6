package app

import (
	"fmt"

	"github.com/specialistvlad/permodule/internal/config"
	"github.com/specialistvlad/permodule/internal/module"
	"github.com/specialistvlad/permodule/internal/selector"
)

// predicate turns a task's select block into a predicate. A missing block
// selects every module.
func predicate(def *config.SelectDef) (selector.Predicate, error) {
	b := selector.NewBuilder()
	if def == nil {
		return b.Build()
	}
	if def.IDs != nil {
		b.WithIDs(def.IDs...)
	}
	if def.Active != nil {
		b.Active(*def.Active)
	}
	if def.Tags != nil {
		b.WithTags(def.Tags...)
	}
	if def.TagIn != nil {
		b.WithTagIn(def.TagIn...)
	}
	return b.Build()
}

// selectModules returns the modules task runs against, in declaration order.
func (a *App) selectModules(task *config.TaskDef) ([]*module.Module, error) {
	pred, err := predicate(task.Select)
	if err != nil {
		return nil, fmt.Errorf("task %q has an invalid selection: %w", task.Name, err)
	}
	return a.registry.Modules(pred), nil
}
