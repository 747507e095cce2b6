package outcome

import (
	"fmt"
	"strings"
)

// AbortError is a deliberate abort raised by a unit of work.
type AbortError struct {
	Reason string
	Err    error
}

func (e *AbortError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("aborted: %s: %v", e.Reason, e.Err)
	case e.Reason != "":
		return "aborted: " + e.Reason
	case e.Err != nil:
		return "aborted: " + e.Err.Error()
	default:
		return "aborted"
	}
}

func (e *AbortError) Unwrap() error { return e.Err }

// InterruptedError reports that work was stopped from outside, together with
// the overall result the interruption implies.
type InterruptedError struct {
	Result Result
	Causes []error
}

func (e *InterruptedError) Error() string {
	if len(e.Causes) == 0 {
		return fmt.Sprintf("interrupted (%s)", e.Result)
	}
	msgs := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("interrupted (%s): %s", e.Result, strings.Join(msgs, "; "))
}

func (e *InterruptedError) Unwrap() []error { return e.Causes }

// FailFastCause names the branch whose failure stopped its siblings.
type FailFastCause struct {
	Branch string
}

func (c *FailFastCause) Error() string {
	return "failed in branch " + c.Branch
}

// NewFailFast builds the interruption sent to siblings of a failed branch.
func NewFailFast(branch string) *InterruptedError {
	return &InterruptedError{
		Result: ResultAborted,
		Causes: []error{&FailFastCause{Branch: branch}},
	}
}
