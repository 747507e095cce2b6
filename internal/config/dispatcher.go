package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/fsutil"
)

// Dispatcher routes manifest files to a Loader by file extension and merges
// the resulting models.
type Dispatcher struct {
	byExt map[string]Loader
}

// NewDispatcher builds a dispatcher from loaders that advertise their
// extensions.
func NewDispatcher(loaders ...Loader) *Dispatcher {
	d := &Dispatcher{byExt: make(map[string]Loader)}
	for _, l := range loaders {
		if e, ok := l.(Extensions); ok {
			for _, ext := range e.Extensions() {
				d.byExt[strings.ToLower(ext)] = l
			}
		}
	}
	return d
}

// Load expands directories, groups files by loader and merges every model.
func (d *Dispatcher) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	exts := make([]string, 0, len(d.byExt))
	for ext := range d.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		if len(exts) == 0 {
			return nil, fmt.Errorf("config: no loaders registered for directory %s", p)
		}
		found, err := fsutil.FindFilesByExtension(p, exts...)
		if err != nil {
			return nil, fmt.Errorf("config: failed to find manifests in %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("config: no manifest files found in %v", paths)
	}

	groups := make(map[Loader][]string)
	var order []Loader
	for _, f := range files {
		l, ok := d.byExt[strings.ToLower(filepath.Ext(f))]
		if !ok {
			return nil, fmt.Errorf("config: unsupported manifest extension %q for %s", filepath.Ext(f), f)
		}
		if _, seen := groups[l]; !seen {
			order = append(order, l)
		}
		groups[l] = append(groups[l], f)
	}

	model := NewModel()
	for _, l := range order {
		logger.Debug("Loading manifests.", "files", groups[l])
		m, err := l.Load(ctx, groups[l]...)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Manifests loaded.", "modules", len(model.Modules), "tasks", len(model.Tasks), "workspace", model.Workspace)
	return model, nil
}
