package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/permodule/internal/module"
	"github.com/specialistvlad/permodule/internal/outcome"
	"github.com/specialistvlad/permodule/internal/sink"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Execution is the handle of one parallel run.
type Execution struct {
	id       string
	engine   *Engine
	logger   *slog.Logger
	failFast bool

	ctx      context.Context
	span     trace.Span
	branches []*branch
	unwatch  func() bool

	stopMu    sync.Mutex
	stopCause error

	// mu guards the join: slots, failures and the flags below.
	mu        sync.Mutex
	slots     map[string]*outcome.Outcome
	pending   int
	failures  []error
	stopSent  bool
	finalized bool
	completed bool
	callbacks []func(map[string]any, error)
	result    map[string]any
	err       error
	done      chan struct{}
}

func newExecution(ctx context.Context, e *Engine, modules []*module.Module, failFast bool) *Execution {
	id := uuid.New().String()
	logger := e.logger.With("run", id)
	if e.stage != "" {
		logger = logger.With("stage", e.stage)
	}

	// Branches are cancelled only through Stop, so the caller's cancellation
	// is routed there as well.
	runCtx, span := e.tracer.Start(context.WithoutCancel(ctx), "parallel",
		trace.WithAttributes(
			attribute.String("run.id", id),
			attribute.Int("run.branches", len(modules)),
			attribute.Bool("run.fail_fast", failFast),
		))

	x := &Execution{
		id:       id,
		engine:   e,
		logger:   logger,
		failFast: failFast,
		ctx:      runCtx,
		span:     span,
		slots:    make(map[string]*outcome.Outcome, len(modules)),
		pending:  len(modules),
		done:     make(chan struct{}),
	}
	for _, m := range modules {
		b := newBranch(runCtx, m, e.Label(m.Name()))
		x.branches = append(x.branches, b)
		x.slots[b.name] = nil
	}
	x.unwatch = context.AfterFunc(ctx, func() {
		x.Stop(context.Cause(ctx))
	})
	return x
}

// ID returns the unique id of this run.
func (x *Execution) ID() string { return x.id }

// Done is closed once the join has produced its result.
func (x *Execution) Done() <-chan struct{} { return x.done }

// Result returns the joined result. It is only meaningful after Done is
// closed.
func (x *Execution) Result() (map[string]any, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.result, x.err
}

// Wait blocks until the run completes or ctx is done.
func (x *Execution) Wait(ctx context.Context) (map[string]any, error) {
	select {
	case <-x.done:
		return x.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnComplete registers fn to receive the joined result. fn runs at most
// once, immediately if the run has already completed.
func (x *Execution) OnComplete(fn func(map[string]any, error)) {
	x.mu.Lock()
	if !x.completed {
		x.callbacks = append(x.callbacks, fn)
		x.mu.Unlock()
		return
	}
	result, err := x.result, x.err
	x.mu.Unlock()
	fn(result, err)
}

// Stop cancels every branch that has not completed. The first cause wins;
// later calls do nothing. Stop never blocks on branches.
func (x *Execution) Stop(cause error) {
	x.stopMu.Lock()
	if x.stopCause != nil {
		x.stopMu.Unlock()
		return
	}
	ic := asInterrupted(cause)
	x.stopCause = ic
	x.stopMu.Unlock()

	x.logger.Debug("Stopping branches.", "cause", ic)
	for _, b := range x.branches {
		b.cancel(ic)
	}
}

// Branches returns a snapshot of every branch in start order.
func (x *Execution) Branches() []BranchStatus {
	out := make([]BranchStatus, 0, len(x.branches))
	for _, b := range x.branches {
		out = append(out, b.status())
	}
	return out
}

// dispatch starts the branch goroutines, optionally bounded by a semaphore.
func (x *Execution) dispatch(work UnitOfWork) {
	n := x.engine.maxParallel
	if n <= 0 {
		for _, b := range x.branches {
			go x.runBranch(b, work)
		}
		return
	}

	sem := semaphore.NewWeighted(int64(n))
	go func() {
		for _, b := range x.branches {
			if err := sem.Acquire(b.ctx, 1); err != nil {
				x.skipUnstarted(b)
				continue
			}
			if b.ctx.Err() != nil {
				sem.Release(1)
				x.skipUnstarted(b)
				continue
			}
			go func(b *branch) {
				defer sem.Release(1)
				x.runBranch(b, work)
			}(b)
		}
	}()
}

// skipUnstarted resolves a branch that was cancelled before it could start.
func (x *Execution) skipUnstarted(b *branch) {
	x.logger.Debug("Branch cancelled before start.", "branch", b.name)
	x.report(b, StateCancelled, nil, asInterrupted(context.Cause(b.ctx)))
}

// report resolves the slot of b and evaluates the join.
func (x *Execution) report(b *branch, state BranchState, value any, failure error) {
	if !b.resolve(state, failure) {
		return
	}
	if failure != nil {
		sink.Notify(x.ctx, x.engine.sink, x.logger, "Failed in branch "+b.name)
	}

	x.mu.Lock()
	if x.finalized || x.slots[b.name] != nil {
		x.mu.Unlock()
		return
	}
	x.slots[b.name] = &outcome.Outcome{Value: value, Err: failure}
	x.pending--
	if failure != nil && !outcome.Contains(x.failures, failure) {
		x.failures = append(x.failures, failure)
	}

	var stopCause error
	if x.pending > 0 {
		if failure != nil && x.failFast && !x.stopSent {
			x.stopSent = true
			stopCause = outcome.NewFailFast(b.name)
		}
		x.mu.Unlock()
		if stopCause != nil {
			x.logger.Info("🛑 Branch failed, stopping remaining branches.", "branch", b.name)
			x.Stop(stopCause)
		}
		return
	}
	x.finalized = true
	x.mu.Unlock()
	x.finish()
}

// finish computes the joined result and runs the completion callbacks.
func (x *Execution) finish() {
	x.mu.Lock()
	var result map[string]any
	err := outcome.Aggregate(x.failures, !x.failFast)
	if err == nil {
		result = make(map[string]any, len(x.slots))
		for name, o := range x.slots {
			result[name] = o.Value
		}
	}
	x.result, x.err = result, err
	x.completed = true
	callbacks := x.callbacks
	x.callbacks = nil
	x.mu.Unlock()

	if x.unwatch != nil {
		x.unwatch()
	}
	if err != nil {
		x.span.RecordError(err)
		x.span.SetStatus(codes.Error, err.Error())
		x.logger.Info("🏁 Parallel execution finished with failures.", "failures", len(x.failures), "error", err)
	} else {
		x.logger.Info("🏁 Parallel execution finished.", "branches", len(result))
	}
	x.span.End()
	close(x.done)

	for _, fn := range callbacks {
		fn(result, err)
	}
}

// asInterrupted returns cause as an interruption, wrapping it as an abort
// when it is not one already.
func asInterrupted(cause error) *outcome.InterruptedError {
	var ie *outcome.InterruptedError
	if errors.As(cause, &ie) {
		return ie
	}
	if cause == nil {
		return &outcome.InterruptedError{Result: outcome.ResultAborted}
	}
	return &outcome.InterruptedError{Result: outcome.ResultAborted, Causes: []error{cause}}
}
