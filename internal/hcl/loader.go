// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/permodule/internal/config"
	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	environ func() []string
}

// NewLoader creates a loader that exposes the process environment to
// manifest expressions.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Extensions implements config.Extensions.
func (l *Loader) Extensions() []string { return []string{".hcl"} }

// hclFile is the top-level structure of a manifest file for decoding.
type hclFile struct {
	Workspace *hclWorkspace `hcl:"workspace,block"`
	Modules   []*hclModule  `hcl:"module,block"`
	Tasks     []*hclTask    `hcl:"task,block"`
}

type hclWorkspace struct {
	Root string `hcl:"root"`
}

type hclModule struct {
	ID     string   `hcl:"id,label"`
	Path   string   `hcl:"path"`
	Name   string   `hcl:"name,optional"`
	Tags   []string `hcl:"tags,optional"`
	Active *bool    `hcl:"active,optional"`
}

type hclTask struct {
	Name        string     `hcl:"name,label"`
	Command     []string   `hcl:"command"`
	FailFast    bool       `hcl:"fail_fast,optional"`
	MaxParallel int        `hcl:"max_parallel,optional"`
	Label       string     `hcl:"label,optional"`
	Stage       string     `hcl:"stage,optional"`
	Select      *hclSelect `hcl:"select,block"`
}

// hclSelect keeps its body raw so that an absent attribute can be told
// apart from an empty one.
type hclSelect struct {
	Body hcl.Body `hcl:",remain"`
}

// Load finds and parses every .hcl file under paths into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("hcl: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := fsutil.FindFilesByExtension(p, l.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("hcl: failed to find manifest files in %s: %w", p, err)
		}
		if len(found) == 0 {
			logger.Warn("No .hcl manifest files found in path.", "path", p)
		}
		files = append(files, found...)
	}

	evalCtx := l.evalContext()
	parser := hclparse.NewParser()
	model := config.NewModel()
	for _, file := range files {
		m, err := parseFile(parser, file, evalCtx)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
		logger.Debug("Parsed HCL manifest.", "file", file, "modules", len(m.Modules), "tasks", len(m.Tasks))
	}
	return model, nil
}

// evalContext exposes the environment as the env object.
func (l *Loader) evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

// parseFile parses a single manifest file.
func parseFile(parser *hclparse.Parser, filePath string, evalCtx *hcl.EvalContext) (*config.Model, error) {
	f, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(f.Body, evalCtx, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}
	return translate(&parsed, filePath, evalCtx)
}

func absDir(filePath string) string {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return filepath.Dir(filePath)
	}
	return filepath.Dir(abs)
}
