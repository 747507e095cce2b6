package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/permodule/internal/module"
	"github.com/specialistvlad/permodule/internal/sink"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/specialistvlad/permodule/internal/engine"

// UnitOfWork is the body run once per module. It should return promptly
// after ctx is cancelled.
type UnitOfWork func(ctx context.Context, m *module.Module) (any, error)

// Engine starts parallel executions. It holds no per-run state and may be
// reused.
type Engine struct {
	logger      *slog.Logger
	sink        sink.Sink
	tracer      trace.Tracer
	maxParallel int
	label       string
	stage       string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the listener that receives run notices.
func WithSink(s sink.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithTracer sets the tracer used for run and branch spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMaxParallel limits how many branches run at once. Zero or less means
// no limit.
func WithMaxParallel(n int) Option {
	return func(e *Engine) { e.maxParallel = n }
}

// WithLabel sets the prefix of branch labels, "Module" by default.
func WithLabel(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.label = prefix
		}
	}
}

// WithStage names the stage every branch runs as.
func WithStage(name string) Option {
	return func(e *Engine) { e.stage = name }
}

// New creates an engine that logs to logger.
func New(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger: logger,
		sink:   sink.Discard{},
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		label:  "Module",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Label returns the display label of the branch called name.
func (e *Engine) Label(name string) string {
	return fmt.Sprintf("%s: %s", e.label, name)
}

// Start submits one branch per module and returns without waiting for them.
// Branches are started in module order.
func (e *Engine) Start(ctx context.Context, modules []*module.Module, work UnitOfWork, failFast bool) (*Execution, error) {
	if work == nil {
		return nil, ErrNoWork
	}
	if err := checkNames(modules); err != nil {
		return nil, err
	}

	x := newExecution(ctx, e, modules, failFast)
	if len(modules) == 0 {
		x.logger.Info("No branches to run.")
		sink.Notify(ctx, e.sink, x.logger, "No branches to run")
		x.finish()
		return x, nil
	}

	x.logger.Info("🚀 Starting parallel execution.", "branches", len(modules), "fail_fast", failFast, "max_parallel", e.maxParallel)
	x.dispatch(work)
	return x, nil
}

// Run starts an execution and blocks until every branch has reported.
// Cancelling ctx stops the branches; Run still waits for them to return.
func (e *Engine) Run(ctx context.Context, modules []*module.Module, work UnitOfWork, failFast bool) (map[string]any, error) {
	x, err := e.Start(ctx, modules, work, failFast)
	if err != nil {
		return nil, err
	}
	<-x.Done()
	return x.Result()
}

func checkNames(modules []*module.Module) error {
	seen := make(map[string]string, len(modules))
	for _, m := range modules {
		if m == nil {
			return fmt.Errorf("engine: nil module")
		}
		name := m.Name()
		if id, ok := seen[name]; ok {
			return &DuplicateBranchNameError{Name: name, IDs: []string{id, m.ID()}}
		}
		seen[name] = m.ID()
	}
	return nil
}
