// Package runner provides the unit of work the CLI runs per module: an
// external command executed inside the module directory.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/module"
)

// waitDelay bounds how long a killed command's output pipes may stay open.
const waitDelay = 2 * time.Second

// Command runs Args in each module's resolved path.
type Command struct {
	Args []string
	// Env is appended to the inherited environment.
	Env []string
	// Stage is exported as MODULE_STAGE when set.
	Stage string
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Module string
	Args   []string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d in module %s", strings.Join(e.Args, " "), e.Code, e.Module)
}

// Run executes the command for m. It returns the trimmed combined output.
// The command is killed when ctx is cancelled and ctx's error is returned.
func (c Command) Run(ctx context.Context, m *module.Module) (any, error) {
	if len(c.Args) == 0 {
		return nil, errors.New("runner: empty command")
	}
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(m.Path())
	if err != nil {
		return nil, fmt.Errorf("runner: module %s: %w", m.ID(), err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("runner: module %s: %s is not a directory", m.ID(), m.Path())
	}

	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = m.Path()
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), c.environ(m)...)

	var out bytes.Buffer
	lw := &lineWriter{emit: func(line string) {
		logger.Debug("Command output.", "line", line)
	}}
	w := io.MultiWriter(&out, lw)
	cmd.Stdout = w
	cmd.Stderr = w

	logger.Debug("Running command.", "args", c.Args, "dir", cmd.Dir)
	err = cmd.Run()
	lw.Flush()
	output := strings.TrimSpace(out.String())

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Module: m.ID(), Args: c.Args, Code: exitErr.ExitCode(), Output: output}
		}
		return nil, fmt.Errorf("runner: module %s: %w", m.ID(), err)
	}
	return output, nil
}

func (c Command) environ(m *module.Module) []string {
	env := []string{
		"MODULE_ID=" + m.ID(),
		"MODULE_NAME=" + m.Name(),
		"MODULE_PATH=" + m.Path(),
		"MODULE_TAGS=" + strings.Join(m.Tags(), ","),
	}
	if c.Stage != "" {
		env = append(env, "MODULE_STAGE="+c.Stage)
	}
	return append(env, c.Env...)
}

// lineWriter splits written bytes into lines and emits each complete one.
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Put the partial line back for the next write.
			rest := line
			w.buf.Reset()
			w.buf.WriteString(rest)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		return
	}
	sc := bufio.NewScanner(&w.buf)
	for sc.Scan() {
		w.emit(sc.Text())
	}
	w.buf.Reset()
}
