// Package yamlconfig loads permodule manifests written in YAML into the
// format-agnostic config model.
//
//	workspace:
//	  root: .
//	modules:
//	  - id: api
//	    path: services/api
//	    tags: [go, backend]
//	tasks:
//	  - name: test
//	    command: [go, test, ./...]
//	    fail_fast: true
//	    select:
//	      tags: [go]
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/permodule/internal/config"
	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a YAML loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Extensions.
func (l *Loader) Extensions() []string { return []string{".yaml", ".yml"} }

type yamlFile struct {
	Workspace *yamlWorkspace `yaml:"workspace"`
	Modules   []yamlModule   `yaml:"modules"`
	Tasks     []yamlTask     `yaml:"tasks"`
}

type yamlWorkspace struct {
	Root string `yaml:"root"`
}

type yamlModule struct {
	ID     string   `yaml:"id"`
	Path   string   `yaml:"path"`
	Name   string   `yaml:"name"`
	Tags   []string `yaml:"tags"`
	Active *bool    `yaml:"active"`
}

type yamlTask struct {
	Name        string      `yaml:"name"`
	Command     []string    `yaml:"command"`
	FailFast    bool        `yaml:"fail_fast"`
	MaxParallel int         `yaml:"max_parallel"`
	Label       string      `yaml:"label"`
	Stage       string      `yaml:"stage"`
	Select      *yamlSelect `yaml:"select"`
}

// yamlSelect uses pointers so that an absent key differs from an empty list.
type yamlSelect struct {
	IDs    *[]string `yaml:"ids"`
	Active *bool     `yaml:"active"`
	Tags   *[]string `yaml:"tags"`
	TagIn  *[]string `yaml:"tag_in"`
}

// Load finds and parses every YAML manifest under paths into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("yamlconfig: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := fsutil.FindFilesByExtension(p, l.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("yamlconfig: failed to find manifest files in %s: %w", p, err)
		}
		if len(found) == 0 {
			logger.Warn("No YAML manifest files found in path.", "path", p)
		}
		files = append(files, found...)
	}

	model := config.NewModel()
	for _, file := range files {
		m, err := parseFile(file)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
		logger.Debug("Parsed YAML manifest.", "file", file, "modules", len(m.Modules), "tasks", len(m.Tasks))
	}
	return model, nil
}

func parseFile(filePath string) (*config.Model, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("yamlconfig: read %s: %w", filePath, err)
	}

	var parsed yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", filePath, err)
	}

	m := config.NewModel()
	if parsed.Workspace != nil {
		root := parsed.Workspace.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(absDir(filePath), root)
		}
		m.Workspace = filepath.Clean(root)
	}

	for i, mod := range parsed.Modules {
		if mod.ID == "" {
			return nil, fmt.Errorf("yamlconfig: %s: module #%d has no id", filePath, i)
		}
		m.Modules = append(m.Modules, config.ModuleDef{
			ID:     mod.ID,
			Path:   mod.Path,
			Name:   mod.Name,
			Tags:   mod.Tags,
			Active: mod.Active,
			Source: filePath,
		})
	}

	for i, task := range parsed.Tasks {
		if task.Name == "" {
			return nil, fmt.Errorf("yamlconfig: %s: task #%d has no name", filePath, i)
		}
		def := config.TaskDef{
			Name:        task.Name,
			Command:     task.Command,
			FailFast:    task.FailFast,
			MaxParallel: task.MaxParallel,
			Label:       task.Label,
			Stage:       task.Stage,
			Source:      filePath,
		}
		if s := task.Select; s != nil {
			def.Select = &config.SelectDef{
				IDs:    deref(s.IDs),
				Active: s.Active,
				Tags:   deref(s.Tags),
				TagIn:  deref(s.TagIn),
			}
		}
		m.Tasks = append(m.Tasks, def)
	}
	return m, nil
}

// deref turns a present list into a non-nil slice and an absent one into nil.
func deref(p *[]string) []string {
	if p == nil {
		return nil
	}
	if *p == nil {
		return []string{}
	}
	return *p
}

func absDir(filePath string) string {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return filepath.Dir(filePath)
	}
	return filepath.Dir(abs)
}
