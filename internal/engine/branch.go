package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/permodule/internal/ctxlog"
	"github.com/specialistvlad/permodule/internal/module"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BranchState is the lifecycle state of a branch.
type BranchState int

const (
	StatePending BranchState = iota
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s BranchState) String() string {
	switch s {
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// MarshalText renders the state by name.
func (s BranchState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BranchStatus is a point-in-time view of one branch.
type BranchStatus struct {
	Name     string      `json:"name"`
	Label    string      `json:"label"`
	ModuleID string      `json:"module_id"`
	State    BranchState `json:"state"`
	Err      error       `json:"-"`
	Error    string      `json:"error,omitempty"`
}

type branch struct {
	name   string
	label  string
	mod    *module.Module
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu    sync.Mutex
	state BranchState
	err   error
}

func newBranch(parent context.Context, m *module.Module, label string) *branch {
	ctx, cancel := context.WithCancelCause(parent)
	return &branch{
		name:   m.Name(),
		label:  label,
		mod:    m,
		ctx:    ctx,
		cancel: cancel,
	}
}

// resolve moves the branch out of Pending. It reports false if the branch
// had already left Pending.
func (b *branch) resolve(state BranchState, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StatePending {
		return false
	}
	b.state = state
	b.err = err
	return true
}

func (b *branch) status() BranchStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := BranchStatus{
		Name:     b.name,
		Label:    b.label,
		ModuleID: b.mod.ID(),
		State:    b.state,
		Err:      b.err,
	}
	if b.err != nil {
		s.Error = b.err.Error()
	}
	return s
}

// runBranch executes work for one module and reports its outcome.
func (x *Execution) runBranch(b *branch, work UnitOfWork) {
	ctx, span := x.engine.tracer.Start(b.ctx, "branch "+b.name,
		trace.WithAttributes(
			attribute.String("branch.label", b.label),
			attribute.String("module.id", b.mod.ID()),
			attribute.String("module.path", b.mod.Path()),
		))

	logger := x.logger.With("branch", b.name, "module", b.mod.ID())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("▶️ Starting branch.", "label", b.label)

	value, err := call(ctx, work, b.mod)

	var (
		state   BranchState
		failure error
	)
	switch {
	case err == nil:
		state = StateSucceeded
	case errors.Is(err, ErrSkipBranch):
		state, value = StateSucceeded, Skipped
	case b.ctx.Err() != nil:
		state, value = StateCancelled, nil
		failure = asInterrupted(context.Cause(b.ctx))
	default:
		state, value = StateFailed, nil
		failure = err
	}

	switch state {
	case StateSucceeded:
		logger.Info("✅ Finished branch.", "skipped", value == Skipped)
	case StateCancelled:
		logger.Info("⏹️ Branch cancelled.", "cause", failure, "error", err)
		span.SetStatus(codes.Error, "cancelled")
	default:
		logger.Error("❌ Branch failed.", "error", failure)
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
	}
	span.End()
	x.report(b, state, value, failure)
}

// call runs work, turning a panic into an error.
func call(ctx context.Context, work UnitOfWork, m *module.Module) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("engine: branch %s panicked: %v", m.Name(), r)
		}
	}()
	return work(ctx, m)
}
