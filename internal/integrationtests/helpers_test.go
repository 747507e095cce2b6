package integration_tests

import (
	"context"
	"os/exec"
	"testing"

	"github.com/specialistvlad/permodule/internal/app"
	"github.com/specialistvlad/permodule/internal/cli"
	"github.com/specialistvlad/permodule/internal/config"
	"github.com/specialistvlad/permodule/internal/hcl"
	"github.com/specialistvlad/permodule/internal/testutil"
	"github.com/specialistvlad/permodule/internal/yamlconfig"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

// runCLI wires the CLI parser, both manifest loaders and the app the same
// way the binary does and returns everything written to the output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &testutil.SafeBuffer{}
	cfg, shouldExit, err := cli.Parse(args, out)
	if err != nil {
		return out.String(), err
	}
	require.False(t, shouldExit, "arguments should not request an early exit")

	loader := config.NewDispatcher(hcl.NewLoader(), yamlconfig.NewLoader())
	a, err := app.NewApp(out, cfg, loader)
	if err != nil {
		return out.String(), err
	}
	err = a.Run(context.Background())
	return out.String(), err
}
