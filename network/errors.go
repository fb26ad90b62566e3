package network

import (
	"fmt"

	"github.com/cort-runtime/cortnet/netlink"
	"github.com/cort-runtime/cortnet/netns"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Error kinds. Every error returned by Manager unwraps to at most one of these.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrResourceExists   = errors.New("resource already exists")
	ErrResourceNotFound = errors.New("resource not found")
	ErrDependencyOrder  = errors.New("dependency order violated")
	ErrPermission       = errors.New("insufficient privilege")
)

// OperationError names the step that failed. It unwraps to both the error kind and the cause.
type OperationError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OperationError) Error() string {
	if e.Kind == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OperationError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// newOperationError wraps err with op and its classified kind. Errors that already carry a kind are returned as is.
func newOperationError(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	var preErr *PreconditionError
	if errors.As(err, &preErr) {
		return err
	}
	return &OperationError{Op: op, Kind: classify(err), Err: err}
}

func withKind(op string, kind, err error) error {
	return &OperationError{Op: op, Kind: kind, Err: err}
}

// classify maps kernel and package errors onto an error kind.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrResourceExists),
		errors.Is(err, ErrResourceNotFound),
		errors.Is(err, ErrDependencyOrder),
		errors.Is(err, ErrPermission):
		return nil
	case errors.Is(err, unix.EEXIST), errors.Is(err, netns.ErrNamespaceExists):
		return ErrResourceExists
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ESRCH),
		errors.Is(err, netlink.ErrLinkNotFound), errors.Is(err, netns.ErrNamespaceNotFound),
		errors.Is(err, netns.ErrProcessNotFound):
		return ErrResourceNotFound
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return ErrPermission
	case errors.Is(err, unix.EBUSY), errors.Is(err, unix.ENOTEMPTY):
		return ErrDependencyOrder
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.EADDRNOTAVAIL):
		return ErrInvalidArgument
	}
	return nil
}

// IsNotFound reports whether err is of kind ErrResourceNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound) || classify(err) == ErrResourceNotFound
}
