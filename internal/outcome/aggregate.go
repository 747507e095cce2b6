package outcome

import (
	"fmt"
	"strings"
)

// AggregatedError is the single failure of a join with several failed
// branches. Primary is the most relevant failure; Suppressed holds the rest.
type AggregatedError struct {
	Primary    error
	Suppressed []error
}

// Aggregate folds failures into one error. With bySeverity the failures are
// ranked first; otherwise the first failure stays primary. It returns nil
// when there are no failures.
func Aggregate(failures []error, bySeverity bool) error {
	if len(failures) == 0 {
		return nil
	}
	ordered := append([]error(nil), failures...)
	if bySeverity {
		ordered = Rank(ordered)
	}
	return &AggregatedError{Primary: ordered[0], Suppressed: ordered[1:]}
}

func (e *AggregatedError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Primary.Error()
	}
	msgs := make([]string, 0, len(e.Suppressed))
	for _, s := range e.Suppressed {
		msgs = append(msgs, s.Error())
	}
	return fmt.Sprintf("%v (and %d more: %s)", e.Primary, len(e.Suppressed), strings.Join(msgs, "; "))
}

// Causes returns the primary failure followed by the suppressed ones.
func (e *AggregatedError) Causes() []error {
	out := make([]error, 0, 1+len(e.Suppressed))
	out = append(out, e.Primary)
	return append(out, e.Suppressed...)
}

// Unwrap exposes every cause to errors.Is and errors.As.
func (e *AggregatedError) Unwrap() []error { return e.Causes() }
