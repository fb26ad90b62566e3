package netns

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrMockNetns = errors.New("mock netns error")

// MockMounter records mount and unmount targets.
type MockMounter struct {
	sync.Mutex
	Mounts   map[string]string
	MountErr error
}

func NewMockMounter() *MockMounter {
	return &MockMounter{Mounts: map[string]string{}}
}

func (m *MockMounter) Mount(source, target, _ string, _ uintptr, _ string) error {
	m.Lock()
	defer m.Unlock()
	if m.MountErr != nil {
		return m.MountErr
	}
	m.Mounts[target] = source
	return nil
}

func (m *MockMounter) Unmount(target string, _ int) error {
	m.Lock()
	defer m.Unlock()
	delete(m.Mounts, target)
	return nil
}

// MockNetns is an in-memory stand-in for Netns. Descriptors are small integers and the
// current namespace is tracked without touching the OS thread.
type MockNetns struct {
	sync.Mutex
	failOn  map[string]bool
	named   map[string]int
	bound   map[string]int
	nextFd  int
	current int
	Calls   []string
}

func NewMockNetns() *MockNetns {
	return &MockNetns{
		failOn:  map[string]bool{},
		named:   map[string]int{},
		bound:   map[string]int{},
		nextFd:  10, //nolint:gomnd // first fake descriptor
		current: 3,  //nolint:gomnd // host namespace descriptor
	}
}

// FailOn makes the named method return ErrMockNetns.
func (f *MockNetns) FailOn(method string) {
	f.Lock()
	defer f.Unlock()
	f.failOn[method] = true
}

func (f *MockNetns) record(method, arg string) error {
	f.Calls = append(f.Calls, method+":"+arg)
	if f.failOn[method] {
		return errors.Wrapf(ErrMockNetns, "%s %s", method, arg)
	}
	return nil
}

// Has reports whether a handle named name exists.
func (f *MockNetns) Has(name string) bool {
	f.Lock()
	defer f.Unlock()
	_, ok := f.named[name]
	_, bound := f.bound[name]
	return ok || bound
}

// Current returns the descriptor of the namespace the mock considers active.
func (f *MockNetns) Current() int {
	f.Lock()
	defer f.Unlock()
	return f.current
}

func (f *MockNetns) Get() (int, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("Get", ""); err != nil {
		return -1, err
	}
	return f.current, nil
}

func (f *MockNetns) GetFromName(name string) (int, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("GetFromName", name); err != nil {
		return -1, err
	}
	if fd, ok := f.named[name]; ok {
		return fd, nil
	}
	if fd, ok := f.bound[name]; ok {
		return fd, nil
	}
	return -1, errors.Wrapf(ErrNamespaceNotFound, "%s", name)
}

func (f *MockNetns) Set(fd int) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("Set", ""); err != nil {
		return err
	}
	f.current = fd
	return nil
}

func (f *MockNetns) Close(int) error {
	return nil
}

func (f *MockNetns) Exists(name string) (bool, error) {
	f.Lock()
	defer f.Unlock()
	_, ok := f.named[name]
	_, bound := f.bound[name]
	return ok || bound, nil
}

func (f *MockNetns) NewNamed(name string) (int, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.record("NewNamed", name); err != nil {
		return -1, err
	}
	if _, ok := f.named[name]; ok {
		return -1, errors.Wrapf(ErrNamespaceExists, "%s", name)
	}
	f.nextFd++
	f.named[name] = f.nextFd
	f.current = f.nextFd
	return f.nextFd, nil
}

func (f *MockNetns) DeleteNamed(name string) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("DeleteNamed", name); err != nil {
		return err
	}
	if _, ok := f.named[name]; !ok {
		return errors.Wrapf(ErrNamespaceNotFound, "%s", name)
	}
	delete(f.named, name)
	return nil
}

func (f *MockNetns) BindNamed(pid int, name string) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("BindNamed", name); err != nil {
		return err
	}
	if _, ok := f.bound[name]; ok {
		return errors.Wrapf(ErrNamespaceExists, "%s", name)
	}
	f.bound[name] = pid
	return nil
}

func (f *MockNetns) UnbindNamed(name string) error {
	f.Lock()
	defer f.Unlock()
	if err := f.record("UnbindNamed", name); err != nil {
		return err
	}
	if _, ok := f.bound[name]; !ok {
		return errors.Wrapf(ErrNamespaceNotFound, "%s", name)
	}
	delete(f.bound, name)
	return nil
}

func (f *MockNetns) Path(name string) string {
	return DefaultDir + "/" + name
}
