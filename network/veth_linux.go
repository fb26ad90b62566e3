package network

import (
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cort-runtime/cortnet/netlink"
	"github.com/cort-runtime/cortnet/network/networkutils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var errPeerNotVisible = errors.New("namespace end not visible in target namespace")

// VethProvisioner connects a namespace to a bridge with a veth pair.
type VethProvisioner struct {
	netlink         netlink.NetlinkInterface
	netUtils        networkutils.NetworkUtils
	nsClient        NamespaceClientInterface
	namespaces      *NamespaceManager
	confirmAttempts uint
	confirmDelay    time.Duration
	logger          *zap.Logger
}

func NewVethProvisioner(nl netlink.NetlinkInterface, nu networkutils.NetworkUtils, nsc NamespaceClientInterface,
	nm *NamespaceManager, confirmAttempts uint, confirmDelay time.Duration, logger *zap.Logger,
) *VethProvisioner {
	if confirmAttempts == 0 {
		confirmAttempts = 1
	}
	return &VethProvisioner{
		netlink:         nl,
		netUtils:        nu,
		nsClient:        nsc,
		namespaces:      nm,
		confirmAttempts: confirmAttempts,
		confirmDelay:    confirmDelay,
		logger:          logger.With(zap.String("component", "veth")),
	}
}

// Attach creates the pair described by rec, enslaves both ends to rec.Bridge and moves the
// namespace end into rec.Namespace. rec advances through created, attached and moved.
// The namespace end is enslaved while it is still in the host namespace; the move detaches it
// from the bridge again but a port cannot be assigned across namespaces afterwards.
func (vp *VethProvisioner) Attach(rec *VethRecord, rb *rollback) error {
	host, peer := rec.HostIfName, rec.NsIfName
	log := vp.logger.With(zap.String("hostIfName", host), zap.String("nsIfName", peer),
		zap.String("bridge", rec.Bridge), zap.String("namespace", rec.Namespace))

	if err := vp.netUtils.CreateEndpoint(host, peer); err != nil {
		return newOperationError("create veth pair "+host, err)
	}
	rb.Push("delete veth "+host, func() error {
		err := vp.netlink.DeleteLink(host)
		if IsNotFound(err) {
			return nil
		}
		return err
	})
	if err := rec.transition(VethCreated); err != nil {
		return err
	}

	if err := vp.netlink.SetLinkMaster(host, rec.Bridge); err != nil {
		return newOperationError("attach "+host+" to bridge", err)
	}
	if err := vp.netlink.SetLinkMaster(peer, rec.Bridge); err != nil {
		return newOperationError("attach "+peer+" to bridge", err)
	}
	if err := vp.netlink.SetLinkState(host, true); err != nil {
		return newOperationError("set "+host+" up", err)
	}
	if err := rec.transition(VethAttached); err != nil {
		return err
	}
	log.Info("Attached veth pair to bridge")

	fd, err := vp.namespaces.Handle(rec.Namespace)
	if err != nil {
		return err
	}
	defer vp.namespaces.Close(fd)

	if err := vp.netlink.SetLinkNetNs(peer, uintptr(fd)); err != nil {
		return newOperationError("move "+peer+" to namespace "+rec.Namespace, err)
	}

	if err := vp.confirmMove(rec.Namespace, peer); err != nil {
		return newOperationError("confirm move of "+peer, err)
	}
	if err := rec.transition(VethMoved); err != nil {
		return err
	}
	log.Info("Moved veth end into namespace")
	return nil
}

// confirmMove polls inside the namespace until peer is visible there.
func (vp *VethProvisioner) confirmMove(ns, peer string) error {
	nsPath := vp.namespaces.Path(ns)
	return retry.Do(func() error {
		return ExecuteInNS(vp.nsClient, nsPath, func() error {
			ok, err := vp.netlink.LinkExists(peer)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(errPeerNotVisible, "%s in %s", peer, ns)
			}
			return nil
		}, vp.logger)
	},
		retry.Attempts(vp.confirmAttempts),
		retry.Delay(vp.confirmDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			vp.logger.Debug("Waiting for namespace end", zap.Uint("attempt", n), zap.Error(err))
		}),
	)
}
