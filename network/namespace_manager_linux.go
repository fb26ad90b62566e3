package network

import (
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NamespaceManager creates and removes network namespaces exposed as named handles.
type NamespaceManager struct {
	netns  NetnsClient
	logger *zap.Logger
}

func NewNamespaceManager(netnsClient NetnsClient, logger *zap.Logger) *NamespaceManager {
	return &NamespaceManager{
		netns:  netnsClient,
		logger: logger.With(zap.String("component", "namespace")),
	}
}

// Create adds a new namespace with a handle at <netns dir>/<name>.
// The calling goroutine is returned to its original namespace before Create returns.
func (nm *NamespaceManager) Create(name string) error {
	runtime.LockOSThread()
	unlock := true
	defer func() {
		if unlock {
			runtime.UnlockOSThread()
		}
	}()

	origin, err := nm.netns.Get()
	if err != nil {
		return newOperationError("get current namespace", err)
	}
	defer nm.netns.Close(origin)

	nm.logger.Info("Creating namespace", zap.String("namespace", name))
	fd, err := nm.netns.NewNamed(name)
	if err != nil {
		// NewNamed only switches the thread once the new namespace exists
		if setErr := nm.netns.Set(origin); setErr != nil {
			unlock = false
		}
		return newOperationError("create namespace "+name, err)
	}
	nm.netns.Close(fd)

	if err := nm.netns.Set(origin); err != nil {
		unlock = false
		nm.logger.Error("Failed to restore namespace", zap.String("namespace", name), zap.Error(err))
		return newOperationError("restore namespace", err)
	}
	return nil
}

// CreateNamed binds the namespace of process pid to a handle called name.
func (nm *NamespaceManager) CreateNamed(pid int, name string) error {
	nm.logger.Info("Binding namespace", zap.Int("pid", pid), zap.String("namespace", name))
	return newOperationError("bind namespace "+name, nm.netns.BindNamed(pid, name))
}

// Destroy removes a namespace created by Create.
func (nm *NamespaceManager) Destroy(name string) error {
	nm.logger.Info("Deleting namespace", zap.String("namespace", name))
	return newOperationError("delete namespace "+name, nm.netns.DeleteNamed(name))
}

// DestroyNamed unmounts and removes a handle created by CreateNamed.
func (nm *NamespaceManager) DestroyNamed(name string) error {
	nm.logger.Info("Unbinding namespace", zap.String("namespace", name))
	return newOperationError("unbind namespace "+name, nm.netns.UnbindNamed(name))
}

func (nm *NamespaceManager) Exists(name string) (bool, error) {
	ok, err := nm.netns.Exists(name)
	return ok, errors.Wrapf(err, "failed to look up namespace %s", name)
}

// Path returns the handle path of the named namespace.
func (nm *NamespaceManager) Path(name string) string {
	return nm.netns.Path(name)
}

// Handle opens the named namespace. The caller closes the returned descriptor.
func (nm *NamespaceManager) Handle(name string) (int, error) {
	fd, err := nm.netns.GetFromName(name)
	if err != nil {
		return -1, newOperationError("open namespace "+name, err)
	}
	return fd, nil
}

func (nm *NamespaceManager) Close(fd int) {
	if err := nm.netns.Close(fd); err != nil {
		nm.logger.Debug("Failed to close namespace handle", zap.Int("fd", fd), zap.Error(err))
	}
}
