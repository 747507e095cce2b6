package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/permodule/internal/config"
	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/engine"
	"github.com/specialistvlad/permodule/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	registry *registry.Registry

	httpServer *http.Server

	mu      sync.Mutex
	current *engine.Execution
}

// NewApp is the constructor for the main application. It loads the manifest
// through loader and registers every declared module under the workspace
// root, which defaults to the manifest directory.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded.", "modules", len(model.Modules), "tasks", len(model.Tasks))

	root := model.Workspace
	if root == "" {
		if root, err = manifestDir(cfg.ManifestPath); err != nil {
			return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
		}
	}

	reg, err := registry.New(root)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	if err := reg.Populate(ctx, model.Modules); err != nil {
		return nil, err
	}
	logger.Debug("Registry populated.", "workspace", reg.Root(), "modules", reg.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    model,
		registry: reg,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) setCurrent(x *engine.Execution) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = x
}

// branches returns the branch states of the run in progress, if any.
func (a *App) branches() []engine.BranchStatus {
	a.mu.Lock()
	x := a.current
	a.mu.Unlock()
	if x == nil {
		return []engine.BranchStatus{}
	}
	return x.Branches()
}

func manifestDir(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}
	return filepath.Abs(path)
}
