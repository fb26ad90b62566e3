// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package network

import (
	"sync"

	"github.com/pkg/errors"
)

var errMockEnterNamespaceFailure = errors.New("failed to enter namespace")

type MockNamespace struct {
	namespace string
	cli       *MockNamespaceClient
}

// MockNamespaceClient records every namespace entered. Paths passed to FailEnter cannot be entered.
type MockNamespaceClient struct {
	sync.Mutex
	failEnter map[string]bool
	entered   []string
	inside    string
}

func NewMockNamespaceClient() *MockNamespaceClient {
	return &MockNamespaceClient{failEnter: map[string]bool{}}
}

// FailEnter makes Enter fail for nsPath.
func (c *MockNamespaceClient) FailEnter(nsPath string) {
	c.Lock()
	defer c.Unlock()
	c.failEnter[nsPath] = true
}

// Entered returns the namespace paths entered so far, in order.
func (c *MockNamespaceClient) Entered() []string {
	c.Lock()
	defer c.Unlock()
	return append([]string(nil), c.entered...)
}

// Inside returns the path of the namespace currently entered, or "" in the host namespace.
func (c *MockNamespaceClient) Inside() string {
	c.Lock()
	defer c.Unlock()
	return c.inside
}

// OpenNamespace creates a new namespace object for the given netns path.
func (c *MockNamespaceClient) OpenNamespace(ns string) (NamespaceInterface, error) {
	if ns == "" {
		return nil, errFileNotExist
	}
	return &MockNamespace{namespace: ns, cli: c}, nil
}

// GetCurrentThreadNamespace returns the caller thread's current namespace.
func (c *MockNamespaceClient) GetCurrentThreadNamespace() (NamespaceInterface, error) {
	return c.OpenNamespace("/proc/self/ns/net")
}

// Close releases the resources associated with the namespace object.
func (ns *MockNamespace) Close() error {
	return nil
}

// GetFd returns the file descriptor of the namespace.
func (ns *MockNamespace) GetFd() uintptr {
	return 1
}

func (ns *MockNamespace) GetName() string {
	return ns.namespace
}

// Enter puts the caller thread inside the namespace.
func (ns *MockNamespace) Enter() error {
	ns.cli.Lock()
	defer ns.cli.Unlock()
	if ns.cli.failEnter[ns.namespace] {
		return errors.Wrap(errMockEnterNamespaceFailure, ns.namespace)
	}
	ns.cli.entered = append(ns.cli.entered, ns.namespace)
	ns.cli.inside = ns.namespace
	return nil
}

// Exit puts the caller thread to its previous namespace.
func (ns *MockNamespace) Exit() error {
	ns.cli.Lock()
	defer ns.cli.Unlock()
	ns.cli.inside = ""
	return nil
}
