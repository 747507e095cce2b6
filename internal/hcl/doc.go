// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hcl loads permodule manifests written in HCL into the
// format-agnostic config model.
//
// A manifest declares the workspace, its modules and the tasks to run per
// module:
//
//	workspace {
//	  root = "."
//	}
//
//	module "api" {
//	  path   = "services/api"
//	  name   = "API"
//	  tags   = ["go", "backend"]
//	  active = true
//	}
//
//	task "test" {
//	  command   = ["go", "test", "./..."]
//	  fail_fast = true
//	  select {
//	    tags = ["go"]
//	  }
//	}
//
// Expressions may read process environment variables through env.NAME.
package hcl
