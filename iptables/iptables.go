// Copyright 2017 Microsoft. All rights reserved.
// MIT License

// Package iptables wraps coreos/go-iptables behind an interface that can be mocked.
package iptables

import (
	"github.com/coreos/go-iptables/iptables"
	"github.com/pkg/errors"
)

// Tables.
const (
	Filter = "filter"
	Nat    = "nat"
)

// Built-in chains.
const (
	Input       = "INPUT"
	Forward     = "FORWARD"
	Output      = "OUTPUT"
	Prerouting  = "PREROUTING"
	Postrouting = "POSTROUTING"
)

// Targets.
const (
	Accept     = "ACCEPT"
	Drop       = "DROP"
	Return     = "RETURN"
	Masquerade = "MASQUERADE"
)

// Client is the subset of *iptables.IPTables used to program rules.
type Client interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
	Insert(table, chain string, pos int, rulespec ...string) error
	Append(table, chain string, rulespec ...string) error
	Delete(table, chain string, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
	List(table, chain string) ([]string, error)
	ChainExists(table, chain string) (bool, error)
	ClearChain(table, chain string) error
	ClearAndDeleteChain(table, chain string) error
	ChangePolicy(table, chain, target string) error
}

var _ Client = (*iptables.IPTables)(nil)

// New returns an IPv4 client that waits up to waitSeconds for the xtables lock.
func New(waitSeconds int) (*iptables.IPTables, error) {
	if waitSeconds <= 0 {
		ipt, err := iptables.New(iptables.IPFamily(iptables.ProtocolIPv4))
		return ipt, errors.Wrap(err, "failed to initialize iptables")
	}
	ipt, err := iptables.New(iptables.IPFamily(iptables.ProtocolIPv4), iptables.Timeout(waitSeconds))
	return ipt, errors.Wrap(err, "failed to initialize iptables")
}

// IsNotExist reports whether err means the rule or chain was not present.
func IsNotExist(err error) bool {
	var e *iptables.Error
	if errors.As(err, &e) {
		return e.IsNotExist()
	}
	return errors.Is(err, ErrMockNotExist)
}
