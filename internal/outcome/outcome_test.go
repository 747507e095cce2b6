package outcome

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultOrdering(t *testing.T) {
	t.Parallel()
	assert.True(t, ResultFailure.WorseThan(ResultUnstable))
	assert.True(t, ResultUnstable.WorseThan(ResultNotBuilt))
	assert.True(t, ResultNotBuilt.WorseThan(ResultAborted))
	assert.True(t, ResultAborted.WorseThan(ResultSuccess))
	assert.False(t, ResultAborted.WorseThan(ResultAborted))
	assert.Equal(t, "NOT_BUILT", ResultNotBuilt.String())
	assert.Equal(t, "Result(42)", Result(42).String())
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "aborted", (&AbortError{}).Error())
	assert.Equal(t, "aborted: user request", (&AbortError{Reason: "user request"}).Error())
	assert.Equal(t, "failed in branch api", (&FailFastCause{Branch: "api"}).Error())
	assert.Equal(t, "interrupted (ABORTED): failed in branch api", NewFailFast("api").Error())
	assert.Equal(t, "interrupted (FAILURE)", (&InterruptedError{Result: ResultFailure}).Error())

	var cause *FailFastCause
	require.ErrorAs(t, NewFailFast("web"), &cause)
	assert.Equal(t, "web", cause.Branch)

	inner := errors.New("disk full")
	assert.ErrorIs(t, &AbortError{Reason: "x", Err: inner}, inner)
}

func TestClassify(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		err  error
		want Class
	}{
		{name: "generic", err: errors.New("boom"), want: ClassGeneric},
		{name: "abort", err: &AbortError{}, want: ClassAbort},
		{name: "wrapped abort", err: fmt.Errorf("step: %w", &AbortError{}), want: ClassAbort},
		{name: "interrupted", err: NewFailFast("a"), want: ClassInterrupted},
		{name: "wrapped interrupted", err: fmt.Errorf("x: %w", NewFailFast("a")), want: ClassInterrupted},
		{name: "interrupted caused by abort", err: &InterruptedError{Causes: []error{&AbortError{}}}, want: ClassInterrupted},
		{name: "abort wrapping interrupted", err: &AbortError{Err: NewFailFast("a")}, want: ClassAbort},
		{name: "joined", err: errors.Join(&AbortError{}, errors.New("x")), want: ClassGeneric},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestResultOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ResultSuccess, ResultOf(nil))
	assert.Equal(t, ResultFailure, ResultOf(errors.New("boom")))
	assert.Equal(t, ResultAborted, ResultOf(fmt.Errorf("x: %w", &AbortError{})))
	assert.Equal(t, ResultAborted, ResultOf(NewFailFast("a")))
	assert.Equal(t, ResultNotBuilt, ResultOf(&InterruptedError{Result: ResultNotBuilt}))
}

func TestRank(t *testing.T) {
	t.Parallel()
	generic1 := errors.New("generic 1")
	generic2 := errors.New("generic 2")
	abort := &AbortError{Reason: "stop"}
	aborted := &InterruptedError{Result: ResultAborted}
	failure := &InterruptedError{Result: ResultFailure}
	unstable := &InterruptedError{Result: ResultUnstable}

	t.Run("generic before abort before interrupted", func(t *testing.T) {
		got := Rank([]error{aborted, abort, generic1})
		assert.Equal(t, []error{generic1, abort, aborted}, got)
	})

	t.Run("interrupted by result", func(t *testing.T) {
		got := Rank([]error{aborted, unstable, failure})
		assert.Equal(t, []error{failure, unstable, aborted}, got)
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		got := Rank([]error{generic2, aborted, generic1})
		assert.Equal(t, []error{generic2, generic1, aborted}, got)
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := []error{aborted, generic1}
		_ = Rank(in)
		assert.Equal(t, []error{aborted, generic1}, in)
	})
}

func TestContains(t *testing.T) {
	t.Parallel()
	a := errors.New("same")
	b := errors.New("same")
	list := []error{a}
	assert.True(t, Contains(list, a))
	assert.False(t, Contains(list, b), "equal messages are distinct failures")
	assert.False(t, Contains(list, nil))
}

func TestAggregate(t *testing.T) {
	t.Parallel()
	generic := errors.New("compile failed")
	interrupted := NewFailFast("api")

	assert.NoError(t, Aggregate(nil, true))

	t.Run("ranked", func(t *testing.T) {
		err := Aggregate([]error{interrupted, generic}, true)
		var agg *AggregatedError
		require.ErrorAs(t, err, &agg)
		assert.Same(t, generic, agg.Primary)
		assert.Equal(t, []error{interrupted}, agg.Suppressed)
		assert.ErrorIs(t, err, generic)
		assert.ErrorIs(t, err, interrupted)

		var cause *FailFastCause
		require.ErrorAs(t, err, &cause)
		assert.Equal(t, "api", cause.Branch)
		assert.Equal(t, "compile failed (and 1 more: interrupted (ABORTED): failed in branch api)", err.Error())
	})

	t.Run("completion order", func(t *testing.T) {
		err := Aggregate([]error{interrupted, generic}, false)
		var agg *AggregatedError
		require.ErrorAs(t, err, &agg)
		assert.Same(t, interrupted, agg.Primary)
		assert.Equal(t, []error{interrupted, generic}, agg.Causes())
	})

	t.Run("single failure", func(t *testing.T) {
		err := Aggregate([]error{generic}, true)
		assert.EqualError(t, err, "compile failed")
	})

	assert.True(t, Outcome{Value: 1}.Succeeded())
	assert.False(t, Outcome{Err: generic}.Succeeded())
}
