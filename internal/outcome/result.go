// Package outcome models what a branch produced, the error classes a branch
// can fail with, and how several failures collapse into one error.
package outcome

import "fmt"

// Result is the overall status attached to an interruption. Values are
// ordered by severity: a larger value is worse.
type Result int

const (
	ResultSuccess Result = iota
	ResultAborted
	ResultNotBuilt
	ResultUnstable
	ResultFailure
)

var resultNames = map[Result]string{
	ResultSuccess:  "SUCCESS",
	ResultAborted:  "ABORTED",
	ResultNotBuilt: "NOT_BUILT",
	ResultUnstable: "UNSTABLE",
	ResultFailure:  "FAILURE",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// WorseThan reports whether r is more severe than other.
func (r Result) WorseThan(other Result) bool {
	return r > other
}

// Outcome is the resolved value of one branch. It is a success when Err is
// nil.
type Outcome struct {
	Value any
	Err   error
}

// Succeeded reports whether the outcome carries no error.
func (o Outcome) Succeeded() bool { return o.Err == nil }
