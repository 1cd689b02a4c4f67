package ports

import (
	"errors"
	"fmt"
)

var (
	ErrNoRows                = errors.New("no_rows")
	ErrMalformedPath         = errors.New("malformed_path")
	ErrInvalidBatchArguments = errors.New("invalid_batch_arguments")
	ErrInvalidNodeID         = errors.New("invalid_node_id")
	ErrDuplicateNodeID       = errors.New("duplicate_node_id")
	ErrNodeNotFound          = errors.New("node_not_found")
	ErrNodeAlreadyExists     = errors.New("node_already_exists")
	ErrParentNotFound        = errors.New("parent_not_found")
	ErrCyclicMove            = errors.New("cyclic_move")
	ErrInvalidFilter         = errors.New("invalid_filter")
)

// MalformedPathError carries the offending path and reason. It matches
// ErrMalformedPath under errors.Is.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed_path: %q: %s", e.Path, e.Reason)
}

func (e *MalformedPathError) Is(target error) bool { return target == ErrMalformedPath }

func NewMalformedPath(path string, reason string) error {
	return &MalformedPathError{Path: path, Reason: reason}
}

func IsMalformedPath(err error) bool {
	_, ok := errors.AsType[*MalformedPathError](err)
	return ok || errors.Is(err, ErrMalformedPath)
}
