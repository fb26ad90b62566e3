package network

import (
	"fmt"
	"sort"
)

type (
	BridgeState    string
	NamespaceState string
	VethState      string
)

const (
	BridgeAbsent  BridgeState = "absent"
	BridgeCreated BridgeState = "created"

	NamespaceAbsent     NamespaceState = "absent"
	NamespaceCreated    NamespaceState = "created"
	NamespaceConfigured NamespaceState = "configured"

	VethAbsent   VethState = "absent"
	VethCreated  VethState = "created"
	VethAttached VethState = "attached"
	VethMoved    VethState = "moved"
)

var bridgeTransitions = map[BridgeState][]BridgeState{
	BridgeAbsent:  {BridgeCreated},
	BridgeCreated: {BridgeAbsent},
}

var namespaceTransitions = map[NamespaceState][]NamespaceState{
	NamespaceAbsent:     {NamespaceCreated},
	NamespaceCreated:    {NamespaceConfigured, NamespaceAbsent},
	NamespaceConfigured: {NamespaceAbsent},
}

var vethTransitions = map[VethState][]VethState{
	VethAbsent:   {VethCreated},
	VethCreated:  {VethAttached, VethAbsent},
	VethAttached: {VethMoved, VethAbsent},
	VethMoved:    {VethAbsent},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PreconditionError is returned when a resource is not in a state the operation can start from.
type PreconditionError struct {
	Resource string
	Name     string
	State    string
	Want     []string
	Kind     error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s %s is %s, want %v", e.Resource, e.Name, e.State, e.Want)
}

func (e *PreconditionError) Unwrap() error {
	return e.Kind
}

// BridgeRecord is the persisted view of a bridge.
type BridgeRecord struct {
	Name              string      `json:"name"`
	Address           string      `json:"address"`
	ExternalInterface string      `json:"externalInterface"`
	FirewallVersion   int         `json:"firewallVersion"`
	State             BridgeState `json:"state"`
}

func (r *BridgeRecord) transition(to BridgeState) error {
	if !allowed(bridgeTransitions, r.State, to) {
		return &PreconditionError{Resource: "bridge", Name: r.Name, State: string(r.State), Want: []string{string(to)}, Kind: ErrDependencyOrder}
	}
	r.State = to
	return nil
}

// NamespaceRecord is the persisted view of a network namespace.
type NamespaceRecord struct {
	Name    string         `json:"name"`
	Named   bool           `json:"named"`
	PID     int            `json:"pid,omitempty"`
	Address string         `json:"address,omitempty"`
	Bridge  string         `json:"bridge,omitempty"`
	State   NamespaceState `json:"state"`
}

func (r *NamespaceRecord) transition(to NamespaceState) error {
	if !allowed(namespaceTransitions, r.State, to) {
		return &PreconditionError{Resource: "namespace", Name: r.Name, State: string(r.State), Want: []string{string(to)}, Kind: ErrDependencyOrder}
	}
	r.State = to
	return nil
}

// VethRecord is the persisted view of a veth pair, keyed by its namespace.
type VethRecord struct {
	Name       string    `json:"name"`
	HostIfName string    `json:"hostIfName"`
	NsIfName   string    `json:"nsIfName"`
	Bridge     string    `json:"bridge"`
	Namespace  string    `json:"namespace"`
	State      VethState `json:"state"`
}

func (r *VethRecord) transition(to VethState) error {
	if !allowed(vethTransitions, r.State, to) {
		return &PreconditionError{Resource: "veth", Name: r.Name, State: string(r.State), Want: []string{string(to)}, Kind: ErrDependencyOrder}
	}
	r.State = to
	return nil
}

// State is everything the manager has provisioned on this host.
type State struct {
	Bridges    map[string]*BridgeRecord    `json:"bridges"`
	Namespaces map[string]*NamespaceRecord `json:"namespaces"`
	Veths      map[string]*VethRecord      `json:"veths"`
}

func newState() *State {
	return &State{
		Bridges:    map[string]*BridgeRecord{},
		Namespaces: map[string]*NamespaceRecord{},
		Veths:      map[string]*VethRecord{},
	}
}

func (s *State) ensureMaps() {
	if s.Bridges == nil {
		s.Bridges = map[string]*BridgeRecord{}
	}
	if s.Namespaces == nil {
		s.Namespaces = map[string]*NamespaceRecord{}
	}
	if s.Veths == nil {
		s.Veths = map[string]*VethRecord{}
	}
}

func (s *State) bridgeState(name string) BridgeState {
	if r, ok := s.Bridges[name]; ok {
		return r.State
	}
	return BridgeAbsent
}

func (s *State) namespaceState(name string) NamespaceState {
	if r, ok := s.Namespaces[name]; ok {
		return r.State
	}
	return NamespaceAbsent
}

func (s *State) vethState(name string) VethState {
	if r, ok := s.Veths[name]; ok {
		return r.State
	}
	return VethAbsent
}

// requireBridge fails with kind unless the bridge is in one of want.
func (s *State) requireBridge(name string, kind error, want ...BridgeState) error {
	cur := s.bridgeState(name)
	for _, w := range want {
		if cur == w {
			return nil
		}
	}
	return &PreconditionError{Resource: "bridge", Name: name, State: string(cur), Want: toStrings(want), Kind: kind}
}

func (s *State) requireNamespace(name string, kind error, want ...NamespaceState) error {
	cur := s.namespaceState(name)
	for _, w := range want {
		if cur == w {
			return nil
		}
	}
	return &PreconditionError{Resource: "namespace", Name: name, State: string(cur), Want: toStrings(want), Kind: kind}
}

func (s *State) requireVeth(name string, kind error, want ...VethState) error {
	cur := s.vethState(name)
	for _, w := range want {
		if cur == w {
			return nil
		}
	}
	return &PreconditionError{Resource: "veth", Name: name, State: string(cur), Want: toStrings(want), Kind: kind}
}

// requireVethState fails with ErrDependencyOrder unless v is in one of want.
func requireVethState(v *VethRecord, want ...VethState) error {
	for _, w := range want {
		if v.State == w {
			return nil
		}
	}
	return &PreconditionError{Resource: "veth", Name: v.Name, State: string(v.State), Want: toStrings(want), Kind: ErrDependencyOrder}
}

// forgetNamespace drops the namespace and its veth pair after teardown.
func (s *State) forgetNamespace(name string) {
	if v, ok := s.Veths[name]; ok {
		_ = v.transition(VethAbsent)
		delete(s.Veths, name)
	}
	if n, ok := s.Namespaces[name]; ok {
		_ = n.transition(NamespaceAbsent)
		delete(s.Namespaces, name)
	}
}

func (s *State) forgetBridge(rec *BridgeRecord) error {
	if err := rec.transition(BridgeAbsent); err != nil {
		return err
	}
	delete(s.Bridges, rec.Name)
	return nil
}

// vethsOnBridge lists the veth pairs attached to bridge, sorted by name.
func (s *State) vethsOnBridge(bridge string) []*VethRecord {
	var out []*VethRecord
	for _, v := range s.Veths {
		if v.Bridge == bridge {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func toStrings[S ~string](in []S) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
