// Copyright 2017 Microsoft. All rights reserved.
// MIT License

package network

import (
	"runtime"

	"github.com/pkg/errors"
	vnetns "github.com/vishvananda/netns"
)

// Namespace is an open handle on a network namespace.
type Namespace struct {
	path   string
	handle vnetns.NsHandle
	origin *Namespace
	cli    *NamespaceClient
}

type NamespaceClient struct{}

func NewNamespaceClient() *NamespaceClient {
	return &NamespaceClient{}
}

// OpenNamespace opens the namespace bound at nsPath.
func (c *NamespaceClient) OpenNamespace(nsPath string) (NamespaceInterface, error) {
	h, err := vnetns.GetFromPath(nsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open namespace %s", nsPath)
	}
	return &Namespace{path: nsPath, handle: h, cli: c}, nil
}

// GetCurrentThreadNamespace opens the namespace of the calling thread.
func (c *NamespaceClient) GetCurrentThreadNamespace() (NamespaceInterface, error) {
	h, err := vnetns.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open current thread namespace")
	}
	return &Namespace{path: h.String(), handle: h, cli: c}, nil
}

func (ns *Namespace) Close() error {
	if !ns.handle.IsOpen() {
		return nil
	}
	if err := ns.handle.Close(); err != nil {
		return errors.Wrapf(err, "failed to close namespace %s", ns.path)
	}
	return nil
}

func (ns *Namespace) GetFd() uintptr {
	return uintptr(ns.handle)
}

func (ns *Namespace) GetName() string {
	return ns.path
}

// Enter moves the calling thread into ns and keeps it locked until Exit.
func (ns *Namespace) Enter() error {
	runtime.LockOSThread()

	cur, err := ns.cli.GetCurrentThreadNamespace()
	if err != nil {
		runtime.UnlockOSThread()
		return err
	}
	origin := cur.(*Namespace)

	if err := vnetns.Set(ns.handle); err != nil {
		origin.Close()
		runtime.UnlockOSThread()
		return errors.Wrapf(err, "failed to enter namespace %s", ns.path)
	}
	ns.origin = origin
	return nil
}

// Exit returns the calling thread to the namespace it was in before Enter.
// The thread stays locked when that fails so it is never reused.
func (ns *Namespace) Exit() error {
	if ns.origin == nil {
		return nil
	}
	if err := vnetns.Set(ns.origin.handle); err != nil {
		return errors.Wrapf(err, "failed to restore namespace %s", ns.origin.path)
	}
	ns.origin.Close()
	ns.origin = nil

	runtime.UnlockOSThread()
	return nil
}
