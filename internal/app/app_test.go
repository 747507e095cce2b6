package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/permodule/internal/hcl"
	"github.com/specialistvlad/permodule/internal/runner"
	"github.com/specialistvlad/permodule/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `
module "api" {
  path = "services/api"
  name = "API"
  tags = ["go", "backend"]
}

module "web" {
  path   = "apps/web"
  tags   = ["node"]
  active = false
}

task "echo" {
  command = ["sh", "-c", "printf %s \"$MODULE_ID\""]
}

task "go-only" {
  command = ["sh", "-c", "printf %s \"$MODULE_NAME\""]
  select {
    tags = ["go"]
  }
}

task "break-web" {
  command   = ["sh", "-c", "test \"$MODULE_ID\" != web"]
  fail_fast = true
}
`

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	return testutil.WriteFiles(t, map[string]string{
		"permodule.hcl":          manifest,
		"services/api/README.md": "api",
		"apps/web/README.md":     "web",
	})
}

func newTestApp(t *testing.T, cfg Config) (*App, *testutil.SafeBuffer) {
	t.Helper()
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	config, err := NewConfig(cfg)
	require.NoError(t, err)
	out := &testutil.SafeBuffer{}
	a, err := NewApp(out, config, hcl.NewLoader())
	require.NoError(t, err)
	return a, out
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{ManifestPath: "permodule.hcl"}},
		{name: "missing manifest", cfg: Config{}, wantErr: "ManifestPath is a required"},
		{name: "negative max parallel", cfg: Config{ManifestPath: "m", MaxParallel: -1}, wantErr: "MaxParallel must not be negative"},
		{name: "recent without history", cfg: Config{ManifestPath: "m", Recent: 3}, wantErr: "Recent requires HistoryPath"},
		{name: "port out of range", cfg: Config{ManifestPath: "m", HealthcheckPort: 70000}, wantErr: "out of range"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.ManifestPath, cfg.ManifestPath)
		})
	}
}

func TestNewApp_DefaultsWorkspaceToManifestDir(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := newWorkspace(t)

	// --- Act ---
	a, _ := newTestApp(t, Config{ManifestPath: filepath.Join(root, "permodule.hcl")})

	// --- Assert ---
	assert.Equal(t, root, a.Registry().Root())
	assert.Equal(t, 2, a.Registry().Len())
	api, err := a.Registry().Module("api")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "services", "api"), api.Path())
	assert.Equal(t, "API", api.Name())
}

func TestNewApp_InvalidManifest(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"permodule.hcl": `module "api" {`,
	})
	cfg, err := NewConfig(Config{ManifestPath: root, LogLevel: "error"})
	require.NoError(t, err)

	// --- Act ---
	_, err = NewApp(&testutil.SafeBuffer{}, cfg, hcl.NewLoader())

	// --- Assert ---
	require.ErrorContains(t, err, "failed to load configuration")
}

func TestNewApp_ModuleOutsideWorkspace(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"permodule.hcl": `
module "escape" {
  path = "../elsewhere"
}
`,
	})
	cfg, err := NewConfig(Config{ManifestPath: root, LogLevel: "error"})
	require.NoError(t, err)

	// --- Act ---
	_, err = NewApp(&testutil.SafeBuffer{}, cfg, hcl.NewLoader())

	// --- Assert ---
	require.ErrorContains(t, err, "1 of 1 module definitions are invalid")
}

func TestRun_PrintsValuesSortedByName(t *testing.T) {
	t.Parallel()
	requireShell(t)

	// --- Arrange ---
	root := newWorkspace(t)
	a, out := newTestApp(t, Config{ManifestPath: root, Task: "echo"})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "API: api\nweb: web\n")
}

func TestRun_Selection(t *testing.T) {
	t.Parallel()
	requireShell(t)

	// --- Arrange ---
	root := newWorkspace(t)
	a, out := newTestApp(t, Config{ManifestPath: root, Task: "go-only"})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "API: API\n")
	assert.NotContains(t, out.String(), "web: ")
}

func TestRun_FailureIsReturned(t *testing.T) {
	t.Parallel()
	requireShell(t)

	// --- Arrange ---
	root := newWorkspace(t)
	a, out := newTestApp(t, Config{ManifestPath: root, Task: "break-web"})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), `task "break-web" failed`)
	var exitErr *runner.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "web", exitErr.Module)
	assert.Contains(t, out.String(), "Failed in branch web")
}

func TestRun_UnknownTask(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := newWorkspace(t)
	a, _ := newTestApp(t, Config{ManifestPath: root, Task: "missing"})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.ErrorContains(t, err, `task "missing" is not declared`)
}

func TestRun_List(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := newWorkspace(t)
	a, out := newTestApp(t, Config{ManifestPath: root, List: true})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "NAME", "PATH", "ACTIVE", "TAGS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"api", "API", "services/api", "true", "backend,go"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"web", "web", "apps/web", "false", "node"}, strings.Fields(lines[2]))
}

func TestRun_ListWithTaskSelection(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := newWorkspace(t)
	a, out := newTestApp(t, Config{ManifestPath: root, Task: "go-only", List: true})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "services/api")
	assert.NotContains(t, out.String(), "apps/web")
}

func TestRun_HistoryAndRecent(t *testing.T) {
	t.Parallel()
	requireShell(t)

	// --- Arrange ---
	root := newWorkspace(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	a, _ := newTestApp(t, Config{ManifestPath: root, Task: "echo", HistoryPath: dbPath})
	require.NoError(t, a.Run(context.Background()))

	// --- Act ---
	lister, out := newTestApp(t, Config{ManifestPath: root, HistoryPath: dbPath, Recent: 5})
	err := lister.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[1])
	require.Len(t, fields, 6)
	assert.Equal(t, "echo", fields[1])
	assert.Equal(t, "SUCCESS", fields[4])
	assert.Equal(t, "2", fields[5])
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := newWorkspace(t)
	a, _ := newTestApp(t, Config{ManifestPath: root})
	srv := httptest.NewServer(a.healthMux())
	t.Cleanup(srv.Close)

	// --- Act ---
	healthResp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer healthResp.Body.Close()
	branchesResp, err := http.Get(srv.URL + "/branches")
	require.NoError(t, err)
	defer branchesResp.Body.Close()

	// --- Assert ---
	assert.Equal(t, http.StatusOK, healthResp.StatusCode)
	assert.Equal(t, "application/json", branchesResp.Header.Get("Content-Type"))
	var statuses []map[string]any
	require.NoError(t, json.NewDecoder(branchesResp.Body).Decode(&statuses))
	assert.Empty(t, statuses)
}
