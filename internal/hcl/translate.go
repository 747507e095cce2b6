// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/permodule/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translate converts the decoded HCL schema of one file into the agnostic
// model.
func translate(f *hclFile, filePath string, evalCtx *hcl.EvalContext) (*config.Model, error) {
	m := config.NewModel()

	if f.Workspace != nil {
		root := f.Workspace.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(absDir(filePath), root)
		}
		m.Workspace = filepath.Clean(root)
	}

	for _, mod := range f.Modules {
		m.Modules = append(m.Modules, config.ModuleDef{
			ID:     mod.ID,
			Path:   mod.Path,
			Name:   mod.Name,
			Tags:   mod.Tags,
			Active: mod.Active,
			Source: filePath,
		})
	}

	for _, task := range f.Tasks {
		def := config.TaskDef{
			Name:        task.Name,
			Command:     task.Command,
			FailFast:    task.FailFast,
			MaxParallel: task.MaxParallel,
			Label:       task.Label,
			Stage:       task.Stage,
			Source:      filePath,
		}
		if task.Select != nil {
			sel, diags := translateSelect(task.Select.Body, evalCtx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode select block of task %q in %s: %w", task.Name, filePath, diags)
			}
			def.Select = sel
		}
		m.Tasks = append(m.Tasks, def)
	}
	return m, nil
}

// translateSelect reads only the attributes present in a select block.
func translateSelect(body hcl.Body, evalCtx *hcl.EvalContext) (*config.SelectDef, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	sel := &config.SelectDef{}
	for name, attr := range attrs {
		val, valDiags := attr.Expr.Value(evalCtx)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}

		var err error
		switch name {
		case "ids":
			sel.IDs, err = toStrings(val)
		case "tags":
			sel.Tags, err = toStrings(val)
		case "tag_in":
			sel.TagIn, err = toStrings(val)
		case "active":
			var b bool
			b, err = toBool(val)
			sel.Active = &b
		default:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported argument",
				Detail:   fmt.Sprintf("An argument named %q is not expected here. Expected one of ids, active, tags, tag_in.", name),
				Subject:  attr.NameRange.Ptr(),
			})
			continue
		}
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid select value",
				Detail:   fmt.Sprintf("Argument %q: %s.", name, err),
				Subject:  attr.Expr.Range().Ptr(),
			})
		}
	}
	return sel, diags
}

func toStrings(val cty.Value) ([]string, error) {
	if val.IsNull() {
		return nil, fmt.Errorf("must not be null")
	}
	list, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, err
	}
	out := []string{}
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func toBool(val cty.Value) (bool, error) {
	if val.IsNull() {
		return false, fmt.Errorf("must not be null")
	}
	b, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, err
	}
	var out bool
	if err := gocty.FromCtyValue(b, &out); err != nil {
		return false, err
	}
	return out, nil
}
