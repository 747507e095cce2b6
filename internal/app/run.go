package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/specialistvlad/permodule/internal/config"
	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/engine"
	"github.com/specialistvlad/permodule/internal/history"
	"github.com/specialistvlad/permodule/internal/module"
	"github.com/specialistvlad/permodule/internal/outcome"
	"github.com/specialistvlad/permodule/internal/runner"
	"github.com/specialistvlad/permodule/internal/sink"
	"github.com/specialistvlad/permodule/internal/telemetry"
)

const serviceName = "permodule"

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Recent > 0 {
		return a.printRecent(ctx, a.config.Recent)
	}

	task, err := a.model.Task(a.config.Task)
	if a.config.List && a.config.Task == "" && errors.Is(err, config.ErrNoTasks) {
		return a.printModules(a.registry.Modules(nil))
	}
	if err != nil {
		return err
	}
	modules, err := a.selectModules(task)
	if err != nil {
		return err
	}
	if a.config.List {
		return a.printModules(modules)
	}

	if a.config.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(ctx, a.config.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer(ctx)
	}

	return a.runTask(ctx, task, modules)
}

func (a *App) runTask(ctx context.Context, task *config.TaskDef, modules []*module.Module) error {
	provider, err := telemetry.Setup(ctx, serviceName, a.config.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("Tracer provider shutdown failed.", "error", err)
		}
	}()

	notices, closeSinks := a.sinks(ctx)
	defer closeSinks()

	maxParallel := task.MaxParallel
	if a.config.MaxParallel > 0 {
		maxParallel = a.config.MaxParallel
	}
	eng := engine.New(a.logger,
		engine.WithSink(notices),
		engine.WithTracer(provider.Tracer(serviceName)),
		engine.WithMaxParallel(maxParallel),
		engine.WithLabel(task.Label),
		engine.WithStage(task.Stage),
	)
	work := runner.Command{Args: task.Command, Stage: task.Stage}

	a.logger.Info("🚀 Starting task...", "task", task.Name, "branches", len(modules), "fail_fast", task.FailFast, "max_parallel", maxParallel)
	startedAt := time.Now()
	x, err := eng.Start(ctx, modules, work.Run, task.FailFast)
	if err != nil {
		return fmt.Errorf("failed to start task %q: %w", task.Name, err)
	}
	a.setCurrent(x)

	<-x.Done()
	values, runErr := x.Result()
	a.record(ctx, task, x, startedAt, values, runErr)

	if runErr != nil {
		a.logger.Error("❌ Task failed.", "task", task.Name, "run_id", x.ID(), "error", runErr)
		return fmt.Errorf("task %q failed: %w", task.Name, runErr)
	}
	a.printValues(values)
	a.logger.Info("🏁 Task finished.", "task", task.Name, "run_id", x.ID())
	return nil
}

// sinks returns the listener for run notices: the output writer plus the
// socket.io endpoint when one is configured and reachable.
func (a *App) sinks(ctx context.Context) (sink.Sink, func()) {
	notices := sink.Multi{sink.NewWriter(a.outW)}
	if a.config.SocketURL == "" {
		return notices, func() {}
	}
	sio, err := sink.DialSocketIO(ctx, sink.SocketIOConfig{
		URL:       a.config.SocketURL,
		Namespace: a.config.SocketNamespace,
		Event:     a.config.SocketEvent,
	}, a.logger)
	if err != nil {
		a.logger.Warn("Socket.io sink unavailable, continuing without it.", "error", err)
		return notices, func() {}
	}
	return append(notices, sio), func() {
		if err := sio.Close(); err != nil {
			a.logger.Warn("Failed to close socket.io sink.", "error", err)
		}
	}
}

// record stores the finished run when a history database is configured. A
// storage failure is logged and never changes the run's result.
func (a *App) record(ctx context.Context, task *config.TaskDef, x *engine.Execution, startedAt time.Time, values map[string]any, runErr error) {
	if a.config.HistoryPath == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(ctx, a.config.HistoryPath)
	if err != nil {
		a.logger.Warn("Failed to open run history.", "path", a.config.HistoryPath, "error", err)
		return
	}
	defer store.Close()

	run := history.Run{
		ID:         x.ID(),
		Task:       task.Name,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Status:     outcome.ResultOf(runErr).String(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	for _, b := range x.Branches() {
		rec := history.Branch{
			Name:     b.Name,
			Label:    b.Label,
			ModuleID: b.ModuleID,
			State:    b.State.String(),
			Error:    b.Error,
		}
		if v, ok := values[b.Name]; ok {
			rec.Value = fmt.Sprint(v)
		}
		run.Branches = append(run.Branches, rec)
	}
	if err := store.Record(ctx, run); err != nil {
		a.logger.Warn("Failed to record run history.", "run_id", run.ID, "error", err)
		return
	}
	a.logger.Debug("Run recorded.", "run_id", run.ID, "path", a.config.HistoryPath)
}

// printValues writes one "name: value" line per branch, sorted by name.
func (a *App) printValues(values map[string]any) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.outW, "%s: %v\n", name, values[name])
	}
}
