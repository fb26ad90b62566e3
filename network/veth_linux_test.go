package network

import (
	"net"
	"testing"
	"time"

	"github.com/cort-runtime/cortnet/netlink"
	"github.com/cort-runtime/cortnet/network/networkutils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

func TestVeth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Veth Suite")
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

var _ = Describe("Test VethProvisioner", func() {
	var (
		h   *testHost
		nm  *NamespaceManager
		vp  *VethProvisioner
		rec *VethRecord
		rb  *rollback
	)

	BeforeEach(func() {
		h = newTestHost()
		h.nl.SeedLink(testBridge, netlink.LINK_TYPE_BRIDGE, "")
		nu := networkutils.NewNetworkUtils(h.nl, h.fs, zap.NewNop())
		nm = NewNamespaceManager(h.netns, zap.NewNop())
		vp = NewVethProvisioner(h.nl, nu, h.nsc, nm, 2, time.Millisecond, zap.NewNop())
		Expect(nm.Create("ns1")).To(Succeed())

		host, peer := VethNames("ns1")
		rec = &VethRecord{Name: "ns1", HostIfName: host, NsIfName: peer, Bridge: testBridge, Namespace: "ns1", State: VethAbsent}
		rb = newRollback(zap.NewNop())
	})

	Describe("Test Attach", func() {
		Context("When every step succeeds", func() {
			It("Should enslave the namespace end before moving it", func() {
				Expect(vp.Attach(rec, rb)).To(Succeed())
				Expect(rec.State).To(Equal(VethMoved))

				calls := h.nl.Calls()
				peerMaster := indexOf(calls, "SetLinkMaster:ns1-ns")
				move := indexOf(calls, "SetLinkNetNs:ns1-ns")
				Expect(indexOf(calls, "SetLinkMaster:ns1-host")).To(BeNumerically(">=", 0))
				Expect(peerMaster).To(BeNumerically(">=", 0))
				Expect(move).To(BeNumerically(">", peerMaster))
				Expect(indexOf(calls, "SetLinkState:ns1-host")).To(BeNumerically("<", move))

				master, up, _, ok := h.nl.LinkState("ns1-host")
				Expect(ok).To(BeTrue())
				Expect(master).To(Equal(testBridge))
				Expect(up).To(BeTrue())
				Expect(h.nsc.Entered()).To(ContainElement("/run/netns/ns1"))
			})
		})

		Context("When the bridge is missing", func() {
			It("Should stop at attached and leave the undo on the stack", func() {
				rec.Bridge = "missing0"
				err := vp.Attach(rec, rb)
				Expect(err).To(HaveOccurred())
				Expect(IsNotFound(err)).To(BeTrue())
				Expect(rec.State).To(Equal(VethCreated))

				Expect(rb.Run()).To(Succeed())
				_, _, _, ok := h.nl.LinkState("ns1-host")
				Expect(ok).To(BeFalse())
			})
		})

		Context("When the namespace cannot be entered", func() {
			It("Should fail after the configured attempts", func() {
				h.nsc.FailEnter("/run/netns/ns1")
				err := vp.Attach(rec, rb)
				Expect(err).To(MatchError(ContainSubstring("confirm move of ns1-ns")))
				Expect(rec.State).To(Equal(VethAttached))
			})
		})

		Context("When the namespace does not exist", func() {
			It("Should report not found before moving", func() {
				rec.Namespace = "ns9"
				err := vp.Attach(rec, rb)
				Expect(IsNotFound(err)).To(BeTrue())
				Expect(indexOf(h.nl.Calls(), "SetLinkNetNs:ns1-ns")).To(Equal(-1))
			})
		})
	})

	Describe("Test Configure", func() {
		It("Should configure the namespace end from inside the namespace", func() {
			Expect(vp.Attach(rec, rb)).To(Succeed())
			c := NewConfigurator(h.nl, networkutils.NewNetworkUtils(h.nl, h.fs, zap.NewNop()), h.nio, h.nsc, nm, zap.NewNop())

			addr, err := ParseCIDRAddress("10.10.10.10/24")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Configure("ns1", rec.NsIfName, addr, net.ParseIP("10.10.10.40"))).To(Succeed())

			calls := h.nl.Calls()
			Expect(indexOf(calls, "AddIPAddress:ns1-ns")).To(BeNumerically("<", indexOf(calls, "SetLinkState:ns1-ns")))
			Expect(indexOf(calls, "SetLinkState:lo")).To(BeNumerically("<", indexOf(calls, "AddIPRoute:")))

			routes := h.nl.Routes()
			Expect(routes).To(HaveLen(1))
			Expect(routes[0].Gw.String()).To(Equal("10.10.10.40"))
			Expect(routes[0].LinkIndex).To(Equal(2))
			Expect(h.nsc.Inside()).To(BeEmpty())
		})
	})
})

var _ = Describe("Test NamespaceManager", func() {
	It("Should return to the original namespace after Create", func() {
		h := newTestHost()
		nm := NewNamespaceManager(h.netns, zap.NewNop())
		origin := h.netns.Current()

		Expect(nm.Create("ns1")).To(Succeed())
		Expect(h.netns.Current()).To(Equal(origin))
		Expect(h.netns.Has("ns1")).To(BeTrue())

		err := nm.Create("ns1")
		Expect(err).To(MatchError(ErrResourceExists))
		Expect(h.netns.Current()).To(Equal(origin))
	})
})
