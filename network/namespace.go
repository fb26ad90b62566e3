package network

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var errFileNotExist = errors.New("no such file or directory")

// NamespaceInterface is an open network namespace the calling thread can enter.
type NamespaceInterface interface {
	GetFd() uintptr
	GetName() string
	Enter() error
	Exit() error
	Close() error
}

type NamespaceClientInterface interface {
	OpenNamespace(nsPath string) (NamespaceInterface, error)
	GetCurrentThreadNamespace() (NamespaceInterface, error)
}

// NetnsClient manages named namespace handles. It is implemented by netns.Netns.
type NetnsClient interface {
	Get() (int, error)
	GetFromName(name string) (int, error)
	Set(fd int) error
	Close(fd int) error
	Exists(name string) (bool, error)
	NewNamed(name string) (int, error)
	DeleteNamed(name string) error
	BindNamed(pid int, name string) error
	UnbindNamed(name string) error
	Path(name string) string
}

// ExecuteInNS runs f with the calling thread inside the namespace at nsPath and switches back afterwards.
func ExecuteInNS(nsc NamespaceClientInterface, nsPath string, f func() error, logger *zap.Logger) error {
	ns, err := nsc.OpenNamespace(nsPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open namespace %s", nsPath)
	}
	defer ns.Close()

	logger.Debug("Entering ns", zap.String("nsFileName", ns.GetName()))
	if err := ns.Enter(); err != nil {
		return errors.Wrapf(err, "failed to enter namespace %s", nsPath)
	}

	defer func() {
		logger.Debug("Exiting ns", zap.String("nsFileName", ns.GetName()))
		if err := ns.Exit(); err != nil {
			logger.Error("Could not exit ns", zap.String("nsFileName", ns.GetName()), zap.Error(err))
		}
	}()
	return f()
}
