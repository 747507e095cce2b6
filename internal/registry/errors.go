package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID matches any *DuplicateIDError.
	ErrDuplicateID = errors.New("duplicate module id")
	// ErrOutsideWorkspace matches any *PathOutsideWorkspaceError.
	ErrOutsideWorkspace = errors.New("module path outside workspace")
	// ErrNotFound matches any *NotFoundError.
	ErrNotFound = errors.New("module not found")
	// ErrUnresolved is returned when a module has no resolved location.
	ErrUnresolved = errors.New("module path is not resolved")
)

// DuplicateIDError reports an attempt to register an id twice.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("module with id %q is already defined", e.ID)
}

// Is lets errors.Is match ErrDuplicateID.
func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

// PathOutsideWorkspaceError reports a module path that resolves outside the
// workspace root.
type PathOutsideWorkspaceError struct {
	ID       string
	Path     string
	Resolved string
	Root     string
}

func (e *PathOutsideWorkspaceError) Error() string {
	return fmt.Sprintf("module %q: path %q resolves to %s, which is not inside workspace %s", e.ID, e.Path, e.Resolved, e.Root)
}

// Is lets errors.Is match ErrOutsideWorkspace.
func (e *PathOutsideWorkspaceError) Is(target error) bool { return target == ErrOutsideWorkspace }

// NotFoundError reports a lookup of an unknown id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module with id %q is not defined", e.ID)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
