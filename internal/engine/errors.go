package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoWork is returned when Start is called without a unit of work.
	ErrNoWork = errors.New("engine: unit of work is nil")
	// ErrSkipBranch may be returned by a unit of work to mark its branch
	// as skipped. The branch counts as succeeded with the value Skipped.
	ErrSkipBranch = errors.New("engine: branch skipped")
)

type skipMarker struct{}

func (skipMarker) String() string { return "skipped" }

// Skipped is the value recorded for a branch whose work returned
// ErrSkipBranch.
var Skipped any = skipMarker{}

// DuplicateBranchNameError is returned when two modules would produce
// branches with the same name.
type DuplicateBranchNameError struct {
	Name string
	IDs  []string
}

func (e *DuplicateBranchNameError) Error() string {
	return fmt.Sprintf("engine: modules %s share the branch name %q", strings.Join(e.IDs, ", "), e.Name)
}
