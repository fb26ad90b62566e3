package iptables

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrMockNotExist mirrors the "does not exist" failures of the iptables binary.
	ErrMockNotExist = errors.New("mock iptables: no such rule or chain")
	ErrMockIptables = errors.New("mock iptables error")
)

type mockChain struct {
	policy string
	rules  []string
}

// MockClient keeps tables in memory and implements Client.
type MockClient struct {
	sync.Mutex
	tables map[string]map[string]*mockChain
	failOn map[string]bool
}

func NewMockClient() *MockClient {
	builtin := func(names ...string) map[string]*mockChain {
		m := map[string]*mockChain{}
		for _, n := range names {
			m[n] = &mockChain{policy: Accept}
		}
		return m
	}
	return &MockClient{
		tables: map[string]map[string]*mockChain{
			Filter: builtin(Input, Forward, Output),
			Nat:    builtin(Prerouting, Input, Output, Postrouting),
		},
		failOn: map[string]bool{},
	}
}

// FailOn makes the named method return ErrMockIptables.
func (m *MockClient) FailOn(method string) {
	m.Lock()
	defer m.Unlock()
	m.failOn[method] = true
}

// Rules returns the rules of a chain in order, or nil when the chain is missing.
func (m *MockClient) Rules(table, chain string) []string {
	m.Lock()
	defer m.Unlock()
	c, ok := m.tables[table][chain]
	if !ok {
		return nil
	}
	return append([]string(nil), c.rules...)
}

// Policy returns the policy of a built-in chain.
func (m *MockClient) Policy(table, chain string) string {
	m.Lock()
	defer m.Unlock()
	if c, ok := m.tables[table][chain]; ok {
		return c.policy
	}
	return ""
}

func (m *MockClient) fail(method string) error {
	if m.failOn[method] {
		return errors.Wrap(ErrMockIptables, method)
	}
	return nil
}

func (m *MockClient) chain(table, chain string) (*mockChain, error) {
	c, ok := m.tables[table][chain]
	if !ok {
		return nil, errors.Wrapf(ErrMockNotExist, "chain %s/%s", table, chain)
	}
	return c, nil
}

func ruleKey(rulespec []string) string {
	return strings.Join(rulespec, " ")
}

func (m *MockClient) Exists(table, chain string, rulespec ...string) (bool, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("Exists"); err != nil {
		return false, err
	}
	c, err := m.chain(table, chain)
	if err != nil {
		return false, err
	}
	key := ruleKey(rulespec)
	for _, r := range c.rules {
		if r == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockClient) Insert(table, chain string, pos int, rulespec ...string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("Insert"); err != nil {
		return err
	}
	c, err := m.chain(table, chain)
	if err != nil {
		return err
	}
	if pos < 1 || pos > len(c.rules)+1 {
		return errors.Errorf("mock iptables: index %d out of range", pos)
	}
	c.rules = append(c.rules[:pos-1], append([]string{ruleKey(rulespec)}, c.rules[pos-1:]...)...)
	return nil
}

func (m *MockClient) Append(table, chain string, rulespec ...string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("Append"); err != nil {
		return err
	}
	c, err := m.chain(table, chain)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, ruleKey(rulespec))
	return nil
}

func (m *MockClient) Delete(table, chain string, rulespec ...string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("Delete"); err != nil {
		return err
	}
	return m.deleteLocked(table, chain, rulespec)
}

func (m *MockClient) deleteLocked(table, chain string, rulespec []string) error {
	c, err := m.chain(table, chain)
	if err != nil {
		return err
	}
	key := ruleKey(rulespec)
	for i, r := range c.rules {
		if r == key {
			c.rules = append(c.rules[:i], c.rules[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrMockNotExist, "rule %q in %s/%s", key, table, chain)
}

func (m *MockClient) DeleteIfExists(table, chain string, rulespec ...string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("DeleteIfExists"); err != nil {
		return err
	}
	if err := m.deleteLocked(table, chain, rulespec); err != nil && !errors.Is(err, ErrMockNotExist) {
		return err
	}
	return nil
}

func (m *MockClient) List(table, chain string) ([]string, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("List"); err != nil {
		return nil, err
	}
	c, err := m.chain(table, chain)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(c.rules)+1)
	if c.policy != "" {
		out = append(out, fmt.Sprintf("-P %s %s", chain, c.policy))
	} else {
		out = append(out, "-N "+chain)
	}
	for _, r := range c.rules {
		out = append(out, fmt.Sprintf("-A %s %s", chain, r))
	}
	return out, nil
}

func (m *MockClient) ChainExists(table, chain string) (bool, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("ChainExists"); err != nil {
		return false, err
	}
	_, ok := m.tables[table][chain]
	return ok, nil
}

// ClearChain flushes a chain, creating it when missing.
func (m *MockClient) ClearChain(table, chain string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("ClearChain"); err != nil {
		return err
	}
	t, ok := m.tables[table]
	if !ok {
		return errors.Wrapf(ErrMockNotExist, "table %s", table)
	}
	if c, ok := t[chain]; ok {
		c.rules = nil
		return nil
	}
	t[chain] = &mockChain{}
	return nil
}

func (m *MockClient) ClearAndDeleteChain(table, chain string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("ClearAndDeleteChain"); err != nil {
		return err
	}
	c, ok := m.tables[table][chain]
	if !ok {
		return nil
	}
	if c.policy != "" {
		return errors.Errorf("mock iptables: cannot delete built-in chain %s", chain)
	}
	for name, other := range m.tables[table] {
		for _, r := range other.rules {
			if strings.Contains(r, "-j "+chain) {
				return errors.Errorf("mock iptables: chain %s is referenced from %s", chain, name)
			}
		}
	}
	delete(m.tables[table], chain)
	return nil
}

func (m *MockClient) ChangePolicy(table, chain, target string) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("ChangePolicy"); err != nil {
		return err
	}
	c, err := m.chain(table, chain)
	if err != nil {
		return err
	}
	if c.policy == "" {
		return errors.Errorf("mock iptables: %s is not a built-in chain", chain)
	}
	c.policy = target
	return nil
}
