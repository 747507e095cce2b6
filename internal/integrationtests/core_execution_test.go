package integration_tests

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/permodule/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: modules from HCL and a task from YAML form one run
func TestCoreExecution_MixedManifestFormats(t *testing.T) {
	t.Parallel()
	requireShell(t)

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"manifests/modules.hcl": `
			workspace {
			  root = ".."
			}

			module "api" {
			  path = "services/api"
			  tags = ["go"]
			}
		`,
		"manifests/more.yml": `
modules:
  - id: web
    path: apps/web
    name: Web
    tags: [node]
tasks:
  - name: where
    command: [sh, -c, 'basename "$(pwd)"']
`,
		"services/api/.keep": "",
		"apps/web/.keep":     "",
	})

	// --- Act ---
	out, err := runCLI(t, "-log-level", "error", "-t", "where", filepath.Join(root, "manifests"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out, "Web: web\napi: api\n")
}

// Test for: a task's select block narrows the branches that run
func TestCoreExecution_SelectionByActivationAndTags(t *testing.T) {
	t.Parallel()
	requireShell(t)

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"permodule.hcl": `
			module "api" {
			  path = "api"
			  tags = ["go", "backend"]
			}

			module "worker" {
			  path   = "worker"
			  tags   = ["go"]
			  active = false
			}

			module "web" {
			  path = "web"
			  tags = ["node"]
			}

			task "active-go" {
			  command = ["sh", "-c", "printf %s \"$MODULE_TAGS\""]
			  select {
			    active = true
			    tag_in = ["go", "rust"]
			  }
			}

			task "nothing" {
			  command = ["false"]
			  select {
			    ids = ["missing"]
			  }
			}
		`,
		"api/.keep":    "",
		"worker/.keep": "",
		"web/.keep":    "",
	})

	// --- Act ---
	out, err := runCLI(t, "-log-level", "error", "-task", "active-go", root)
	emptyOut, emptyErr := runCLI(t, "-log-level", "error", "-task", "nothing", root)

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out, "api: backend,go\n")
	assert.NotContains(t, out, "worker:")
	assert.NotContains(t, out, "web:")

	require.NoError(t, emptyErr)
	assert.Contains(t, emptyOut, "No branches to run")
}

// Test for: max_parallel = 1 never lets two branches overlap
func TestCoreExecution_MaxParallelSerializes(t *testing.T) {
	t.Parallel()
	requireShell(t)

	// --- Arrange ---
	// Each command takes a directory lock; overlapping branches would fail mkdir.
	lock := filepath.Join(t.TempDir(), "lock")
	var modules strings.Builder
	files := map[string]string{}
	for i := range 4 {
		id := fmt.Sprintf("m%d", i)
		fmt.Fprintf(&modules, "module %q {\n  path = %q\n}\n\n", id, id)
		files[id+"/.keep"] = ""
	}
	files["permodule.hcl"] = modules.String() + fmt.Sprintf(`
task "locked" {
  command      = ["sh", "-c", "mkdir %[1]s || exit 9; sleep 0.1; rmdir %[1]s; printf ok"]
  fail_fast    = true
  max_parallel = 1
}
`, lock)
	root := testutil.WriteFiles(t, files)

	// --- Act ---
	out, err := runCLI(t, "-log-level", "error", root)

	// --- Assert ---
	require.NoError(t, err)
	for i := range 4 {
		assert.Contains(t, out, fmt.Sprintf("m%d: ok\n", i))
	}
}

// Test for: -list prints the selected modules without running anything
func TestCoreExecution_ListDoesNotRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"permodule.hcl": `
			module "api" {
			  path = "services/api"
			  name = "API"
			}

			task "boom" {
			  command = ["false"]
			}
		`,
	})

	// --- Act ---
	out, err := runCLI(t, "-log-level", "error", "-list", root)

	// --- Assert ---
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"api", "API", "services/api", "true"}, strings.Fields(lines[1]))
}
