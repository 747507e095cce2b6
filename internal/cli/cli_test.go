package cli

import (
	"bytes"
	"testing"

	"github.com/specialistvlad/permodule/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		args     []string
		environ  map[string]string
		want     *app.Config
		wantExit bool
		wantCode int
		wantErr  string
	}{
		{
			name: "positional manifest with defaults",
			args: []string{"permodule.hcl"},
			want: &app.Config{
				ManifestPath:    "permodule.hcl",
				LogFormat:       "text",
				LogLevel:        "info",
				SocketNamespace: "/",
				SocketEvent:     "notice",
			},
		},
		{
			name: "long flags",
			args: []string{
				"-manifest", "ci", "-task", "test", "-list",
				"-log-format", "JSON", "-log-level", "DEBUG",
				"-healthcheck-port", "8080", "-history", "runs.db",
				"-socket-url", "http://localhost:3000", "-socket-namespace", "/ci", "-socket-event", "line",
				"-otel-endpoint", "http://localhost:4318", "-max-parallel", "3",
			},
			want: &app.Config{
				ManifestPath:    "ci",
				Task:            "test",
				List:            true,
				LogFormat:       "json",
				LogLevel:        "debug",
				HealthcheckPort: 8080,
				HistoryPath:     "runs.db",
				SocketURL:       "http://localhost:3000",
				SocketNamespace: "/ci",
				SocketEvent:     "line",
				OTelEndpoint:    "http://localhost:4318",
				MaxParallel:     3,
			},
		},
		{
			name: "shorthand flags",
			args: []string{"-m", "ci", "-t", "lint"},
			want: &app.Config{
				ManifestPath:    "ci",
				Task:            "lint",
				LogFormat:       "text",
				LogLevel:        "info",
				SocketNamespace: "/",
				SocketEvent:     "notice",
			},
		},
		{
			name: "environment defaults",
			args: []string{"ci"},
			environ: map[string]string{
				"PERMODULE_LOG_LEVEL":    "warn",
				"PERMODULE_HISTORY":      "/tmp/runs.db",
				"PERMODULE_MAX_PARALLEL": "2",
			},
			want: &app.Config{
				ManifestPath:    "ci",
				LogFormat:       "text",
				LogLevel:        "warn",
				HistoryPath:     "/tmp/runs.db",
				SocketNamespace: "/",
				SocketEvent:     "notice",
				MaxParallel:     2,
			},
		},
		{
			name:    "flag beats environment",
			args:    []string{"-log-level", "error", "ci"},
			environ: map[string]string{"PERMODULE_LOG_LEVEL": "debug"},
			want: &app.Config{
				ManifestPath:    "ci",
				LogFormat:       "text",
				LogLevel:        "error",
				SocketNamespace: "/",
				SocketEvent:     "notice",
			},
		},
		{name: "no manifest prints usage", args: []string{}, wantExit: true},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "unknown flag", args: []string{"-nope"}, wantCode: 2, wantErr: "flag provided but not defined"},
		{name: "bad log format", args: []string{"-log-format", "xml", "ci"}, wantCode: 2, wantErr: "invalid log-format"},
		{name: "bad log level", args: []string{"-log-level", "trace", "ci"}, wantCode: 2, wantErr: "invalid log-level"},
		{name: "negative max parallel", args: []string{"-max-parallel", "-1", "ci"}, wantCode: 2, wantErr: "MaxParallel must not be negative"},
		{name: "recent needs history", args: []string{"-recent", "5", "ci"}, wantCode: 2, wantErr: "Recent requires HistoryPath"},
		{
			name:     "invalid environment",
			args:     []string{"ci"},
			environ:  map[string]string{"PERMODULE_MAX_PARALLEL": "many"},
			wantCode: 2,
			wantErr:  "invalid environment",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			out := &bytes.Buffer{}
			environ := tc.environ
			if environ == nil {
				environ = map[string]string{}
			}

			// --- Act ---
			cfg, shouldExit, err := parse(tc.args, out, environ)

			// --- Assert ---
			if tc.wantErr != "" {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, shouldExit)
			if tc.wantExit {
				assert.Nil(t, cfg)
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tc.want, cfg)
		})
	}
}
