// Package netns manages named network namespace handles under a bind mount directory.
package netns

import (
	"github.com/pkg/errors"
)

// DefaultDir is where iproute2 keeps named namespace handles.
const DefaultDir = "/run/netns"

var (
	// ErrNamespaceExists is returned when a handle with the requested name is already present.
	ErrNamespaceExists = errors.New("network namespace handle already exists")
	// ErrNamespaceNotFound is returned when no handle with the requested name is present.
	ErrNamespaceNotFound = errors.New("network namespace handle not found")
	// ErrProcessNotFound is returned when the target process has no network namespace entry.
	ErrProcessNotFound = errors.New("process network namespace not found")
)

// Mounter is the subset of mount(2) and umount2(2) used for namespace handles.
type Mounter interface {
	Mount(source, target, fstype string, flags uintptr, data string) error
	Unmount(target string, flags int) error
}
