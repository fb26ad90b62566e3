package netns

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

type unixMounter struct{}

func (unixMounter) Mount(source, target, fstype string, flags uintptr, data string) error {
	return unix.Mount(source, target, fstype, flags, data) //nolint:wrapcheck // wrapped by caller
}

func (unixMounter) Unmount(target string, flags int) error {
	return unix.Unmount(target, flags) //nolint:wrapcheck // wrapped by caller
}

// Netns wraps vishvananda/netns with a configurable handle directory.
// Methods that switch namespaces act on the calling OS thread, which the caller must lock.
type Netns struct {
	dir     string
	fs      afero.Fs
	mounter Mounter
}

func New() *Netns {
	return NewWithDir(DefaultDir)
}

func NewWithDir(dir string) *Netns {
	return &Netns{dir: dir, fs: afero.NewOsFs(), mounter: unixMounter{}}
}

// NewForTest builds a Netns on top of a caller supplied filesystem and mounter.
func NewForTest(dir string, fs afero.Fs, mounter Mounter) *Netns {
	return &Netns{dir: dir, fs: fs, mounter: mounter}
}

func (f *Netns) Dir() string {
	return f.dir
}

// Path returns the handle path for a named namespace.
func (f *Netns) Path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *Netns) Get() (int, error) {
	nsHandle, err := netns.Get()
	return int(nsHandle), errors.Wrap(err, "netns impl")
}

func (f *Netns) GetFromName(name string) (int, error) {
	nsHandle, err := netns.GetFromPath(f.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return -1, errors.Wrapf(ErrNamespaceNotFound, "%s", name)
	}
	return int(nsHandle), errors.Wrap(err, "netns impl")
}

func (f *Netns) Set(fileDescriptor int) error {
	return errors.Wrap(netns.Set(netns.NsHandle(fileDescriptor)), "netns impl")
}

func (f *Netns) Close(fileDescriptor int) error {
	nsHandle := netns.NsHandle(fileDescriptor)
	return errors.Wrap(nsHandle.Close(), "netns impl")
}

// Exists reports whether a handle named name is present.
func (f *Netns) Exists(name string) (bool, error) {
	ok, err := afero.Exists(f.fs, f.Path(name))
	return ok, errors.Wrap(err, "netns impl")
}

// NewNamed creates a namespace, switches the calling thread into it and pins it under name.
func (f *Netns) NewNamed(name string) (int, error) {
	path, err := f.createMountPoint(name)
	if err != nil {
		return -1, err
	}

	nsHandle, err := netns.New()
	if err != nil {
		_ = f.fs.Remove(path)
		return -1, errors.Wrap(err, "netns impl")
	}

	src := fmt.Sprintf("/proc/%d/task/%d/ns/net", os.Getpid(), unix.Gettid())
	if err := f.mounter.Mount(src, path, "bind", unix.MS_BIND, ""); err != nil {
		_ = nsHandle.Close()
		_ = f.fs.Remove(path)
		return -1, errors.Wrapf(err, "failed to bind %s to %s", src, path)
	}
	return int(nsHandle), nil
}

// DeleteNamed removes the handle. The namespace itself is freed once nothing else references it.
func (f *Netns) DeleteNamed(name string) error {
	return f.UnbindNamed(name)
}

// BindNamed pins the network namespace of process pid under name without switching namespaces.
func (f *Netns) BindNamed(pid int, name string) error {
	src := fmt.Sprintf("/proc/%d/ns/net", pid)
	ok, err := afero.Exists(f.fs, src)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", src)
	}
	if !ok {
		return errors.Wrapf(ErrProcessNotFound, "pid %d", pid)
	}

	path, err := f.createMountPoint(name)
	if err != nil {
		return err
	}
	if err := f.mounter.Mount(src, path, "none", unix.MS_BIND, ""); err != nil {
		_ = f.fs.Remove(path)
		return errors.Wrapf(err, "failed to bind %s to %s", src, path)
	}
	return nil
}

// UnbindNamed lazily unmounts the handle and removes its mount point.
func (f *Netns) UnbindNamed(name string) error {
	path := f.Path(name)
	ok, err := afero.Exists(f.fs, path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	if !ok {
		return errors.Wrapf(ErrNamespaceNotFound, "%s", name)
	}

	if err := f.mounter.Unmount(path, unix.MNT_DETACH); err != nil && !errors.Is(err, unix.EINVAL) {
		return errors.Wrapf(err, "failed to unmount %s", path)
	}
	return errors.Wrapf(f.fs.Remove(path), "failed to remove %s", path)
}

func (f *Netns) createMountPoint(name string) (string, error) {
	if err := f.fs.MkdirAll(f.dir, 0o755); err != nil { //nolint:gomnd // iproute2 mode
		return "", errors.Wrapf(err, "failed to create %s", f.dir)
	}

	path := f.Path(name)
	file, err := f.fs.OpenFile(path, os.O_RDONLY|os.O_CREATE|os.O_EXCL, 0o444) //nolint:gomnd // iproute2 mode
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", errors.Wrapf(ErrNamespaceExists, "%s", name)
		}
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	return path, errors.Wrapf(file.Close(), "failed to close %s", path)
}
