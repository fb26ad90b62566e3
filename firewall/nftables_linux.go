package firewall

import (
	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	nftTablePrefix    = "cortnet_"
	nftForwardChain   = "forward"
	nftPostrouteChain = "postrouting"
	ifNameSize        = 16
)

// NFTablesConn is the part of *nftables.Conn used by NftablesInstaller.
type NFTablesConn interface {
	AddTable(t *nftables.Table) *nftables.Table
	DelTable(t *nftables.Table)
	ListTables() ([]*nftables.Table, error)
	AddChain(c *nftables.Chain) *nftables.Chain
	AddRule(r *nftables.Rule) *nftables.Rule
	GetRules(t *nftables.Table, c *nftables.Chain) ([]*nftables.Rule, error)
	Flush() error
}

var _ NFTablesConn = (*nftables.Conn)(nil)

// NftablesInstaller gives each bridge a private ip table which is replaced in a single transaction.
type NftablesInstaller struct {
	conn   NFTablesConn
	logger *zap.Logger
}

// NewNftablesConn opens a netlink connection to nf_tables.
func NewNftablesConn() (*nftables.Conn, error) {
	conn, err := nftables.New()
	return conn, errors.Wrap(err, "failed to open nftables connection")
}

func NewNftablesInstaller(conn NFTablesConn, logger *zap.Logger) *NftablesInstaller {
	return &NftablesInstaller{
		conn:   conn,
		logger: logger.With(zap.String("component", "firewall-nftables")),
	}
}

func nftTableName(bridge string) string { return nftTablePrefix + bridge }

func ifname(name string) []byte {
	b := make([]byte, ifNameSize)
	copy(b, name)
	return b
}

func matchIIF(name string) []expr.Any {
	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(name)},
	}
}

func matchOIF(name string) []expr.Any {
	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyOIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(name)},
	}
}

func verdict(kind expr.VerdictKind) expr.Any {
	return &expr.Verdict{Kind: kind}
}

func concat(parts ...[]expr.Any) []expr.Any {
	var out []expr.Any
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func (n *NftablesInstaller) lookupTable(bridge string) (*nftables.Table, error) {
	tables, err := n.conn.ListTables()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list nftables tables")
	}
	for _, t := range tables {
		if t.Name == nftTableName(bridge) && t.Family == nftables.TableFamilyIPv4 {
			return t, nil
		}
	}
	return nil, nil
}

// Apply deletes any previous table for the bridge and installs the new one in the same batch.
func (n *NftablesInstaller) Apply(rs Ruleset) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	n.logger.Info("Applying ruleset", zap.String("bridge", rs.Bridge), zap.String("tag", rs.VersionTag()))

	existing, err := n.lookupTable(rs.Bridge)
	if err != nil {
		return err
	}
	if existing != nil {
		n.conn.DelTable(existing)
	}

	table := n.conn.AddTable(&nftables.Table{Name: nftTableName(rs.Bridge), Family: nftables.TableFamilyIPv4})

	policy := nftables.ChainPolicyAccept
	forward := n.conn.AddChain(&nftables.Chain{
		Name:     nftForwardChain,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookForward,
		Priority: nftables.ChainPriorityFilter,
		Policy:   &policy,
	})
	postrouting := n.conn.AddChain(&nftables.Chain{
		Name:     nftPostrouteChain,
		Table:    table,
		Type:     nftables.ChainTypeNAT,
		Hooknum:  nftables.ChainHookPostrouting,
		Priority: nftables.ChainPriorityNATSource,
	})

	tag := []byte(rs.VersionTag())
	br, ext := rs.Bridge, rs.ExternalInterface
	forwardExprs := [][]expr.Any{
		concat(matchIIF(br), matchOIF(br), []expr.Any{verdict(expr.VerdictAccept)}),
		concat(matchIIF(ext), matchOIF(br), []expr.Any{verdict(expr.VerdictAccept)}),
		concat(matchIIF(br), matchOIF(ext), []expr.Any{verdict(expr.VerdictAccept)}),
		// anything else entering or leaving the bridge is dropped
		concat(matchIIF(br), []expr.Any{verdict(expr.VerdictDrop)}),
		concat(matchOIF(br), []expr.Any{verdict(expr.VerdictDrop)}),
	}
	for _, e := range forwardExprs {
		n.conn.AddRule(&nftables.Rule{Table: table, Chain: forward, Exprs: e, UserData: tag})
	}

	subnet := rs.Subnet()
	n.conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: postrouting,
		Exprs: concat(
			[]expr.Any{
				&expr.Payload{
					DestRegister: 1,
					Base:         expr.PayloadBaseNetworkHeader,
					Offset:       12, //nolint:gomnd // IPv4 saddr offset
					Len:          4,  //nolint:gomnd // IPv4 address length
				},
				&expr.Bitwise{
					SourceRegister: 1,
					DestRegister:   1,
					Len:            4, //nolint:gomnd // IPv4 address length
					Mask:           subnet.Mask,
					Xor:            []byte{0, 0, 0, 0},
				},
				&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: subnet.IP.To4()},
			},
			matchOIF(ext),
			[]expr.Any{&expr.Masq{}},
		),
		UserData: tag,
	})

	return errors.Wrapf(n.conn.Flush(), "failed to flush nftables ruleset %s", rs.VersionTag())
}

// Remove deletes the bridge table. A missing table is not an error.
func (n *NftablesInstaller) Remove(rs Ruleset) error {
	n.logger.Info("Removing ruleset", zap.String("bridge", rs.Bridge))

	existing, err := n.lookupTable(rs.Bridge)
	if err != nil || existing == nil {
		return err
	}
	n.conn.DelTable(existing)
	return errors.Wrapf(n.conn.Flush(), "failed to delete nftables table %s", existing.Name)
}

func (n *NftablesInstaller) InstalledVersion(bridge string) (int, error) {
	table, err := n.lookupTable(bridge)
	if err != nil || table == nil {
		return 0, err
	}
	rules, err := n.conn.GetRules(table, &nftables.Chain{Name: nftForwardChain, Table: table})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to list rules of %s", table.Name)
	}
	for _, r := range rules {
		if v, ok := parseVersion(bridge, string(r.UserData)); ok {
			return v, nil
		}
	}
	return 0, nil
}
