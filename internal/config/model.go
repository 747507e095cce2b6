package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Model is the unified representation of every loaded manifest.
type Model struct {
	// Workspace is the absolute workspace root as declared by a manifest.
	// Empty means the caller picks one, normally the manifest directory.
	Workspace string
	Modules   []ModuleDef
	Tasks     []TaskDef
}

// ModuleDef is the format-agnostic form of a `module` declaration.
type ModuleDef struct {
	ID     string
	Path   string
	Name   string
	Tags   []string
	Active *bool
	Source string
}

// TaskDef is the format-agnostic form of a `task` declaration: a command run
// once per selected module.
type TaskDef struct {
	Name        string
	Command     []string
	FailFast    bool
	MaxParallel int
	// Label prefixes branch display names, for example "Module" or "Branch".
	Label string
	// Stage, when set, names the per-branch stage the command runs as.
	Stage  string
	Select *SelectDef
	Source string
}

// SelectDef holds the optional selection filters of a task. A nil slice or
// pointer means the filter was not set.
type SelectDef struct {
	IDs    []string
	Active *bool
	Tags   []string
	TagIn  []string
}

// ErrNoTasks is returned when a task is requested from a model with none.
var ErrNoTasks = errors.New("config: no tasks declared")

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// Merge appends other into m. Two different workspace roots conflict.
func (m *Model) Merge(other *Model) error {
	if other == nil {
		return nil
	}
	if other.Workspace != "" {
		switch {
		case m.Workspace == "":
			m.Workspace = other.Workspace
		case filepath.Clean(m.Workspace) != filepath.Clean(other.Workspace):
			return fmt.Errorf("config: conflicting workspace roots %s and %s", m.Workspace, other.Workspace)
		}
	}
	m.Modules = append(m.Modules, other.Modules...)
	m.Tasks = append(m.Tasks, other.Tasks...)
	return nil
}

// Task returns the task called name, or the first declared task when name
// is empty.
func (m *Model) Task(name string) (*TaskDef, error) {
	if len(m.Tasks) == 0 {
		return nil, ErrNoTasks
	}
	if name == "" {
		return &m.Tasks[0], nil
	}
	for i := range m.Tasks {
		if m.Tasks[i].Name == name {
			return &m.Tasks[i], nil
		}
	}
	return nil, fmt.Errorf("config: task %q is not declared", name)
}

// Validate reports structural problems that no loader can catch alone, such
// as ids or task names declared in two files.
func (m *Model) Validate() error {
	var errs []error
	seenModules := make(map[string]string, len(m.Modules))
	for _, def := range m.Modules {
		if prev, ok := seenModules[def.ID]; ok {
			errs = append(errs, fmt.Errorf("module %q declared in %s and %s", def.ID, prev, def.Source))
			continue
		}
		seenModules[def.ID] = def.Source
	}
	seenTasks := make(map[string]string, len(m.Tasks))
	for _, task := range m.Tasks {
		if prev, ok := seenTasks[task.Name]; ok {
			errs = append(errs, fmt.Errorf("task %q declared in %s and %s", task.Name, prev, task.Source))
			continue
		}
		seenTasks[task.Name] = task.Source
		if len(task.Command) == 0 {
			errs = append(errs, fmt.Errorf("task %q in %s has an empty command", task.Name, task.Source))
		}
		if task.MaxParallel < 0 {
			errs = append(errs, fmt.Errorf("task %q in %s has a negative max_parallel", task.Name, task.Source))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid model: %w", errors.Join(errs...))
	}
	return nil
}
