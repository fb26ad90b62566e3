package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cort-runtime/cortnet/network"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) newCreateBridgeCmd() *cobra.Command {
	var ifNotExists bool
	cmd := &cobra.Command{
		Use:     "create-bridge <physical_interface> <bridge_address> <bridge_name>",
		Aliases: []string{"create_bridge"},
		Short:   "Create a bridge and route its subnet out of a physical interface",
		Long: `Create a bridge, assign it an address, enable IP forwarding and install the
forwarding and NAT rules for the bridge subnet.

Example:
  cortnet create-bridge enp3s0 10.10.10.40/24 cort0`,
		Args: cobra.ExactArgs(3), //nolint:gomnd // interface, address, name
		RunE: func(cmd *cobra.Command, args []string) error {
			if ifNotExists {
				return a.deps.manager.EnsureBridge(args[0], args[1], args[2])
			}
			return a.deps.manager.CreateBridge(args[0], args[1], args[2])
		},
	}
	cmd.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "succeed without changes when the bridge already exists")
	return cmd
}

func (a *app) newApplyFirewallCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "apply-firewall <physical_interface> <bridge_address> <bridge_name>",
		Aliases: []string{"apply_firewall"},
		Short:   "Reinstall the forwarding and NAT rules of an existing bridge",
		Args:    cobra.ExactArgs(3), //nolint:gomnd // interface, address, name
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deps.manager.ApplyBridgeFirewall(args[0], args[1], args[2])
		},
	}
}

func (a *app) newCreateNetworkNamespaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "create-network-namespace <bridge_interface> <bridge_address> <namespace> <namespace_address>",
		Aliases: []string{"create_network_namespace"},
		Short:   "Create a namespace and connect it to a bridge",
		Long: `Create a network namespace, connect it to the bridge with a veth pair named
<namespace>-host and <namespace>-ns, assign the namespace address and route
through the bridge address.

Example:
  cortnet create-network-namespace cort0 10.10.10.40/24 cort0 10.10.10.10/24`,
		Args: cobra.ExactArgs(4), //nolint:gomnd // bridge, address, namespace, address
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deps.manager.CreateNetworkNamespace(args[0], args[1], args[2], args[3])
		},
	}
}

func (a *app) newSetupNetworkNamespaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "setup-network-namespace <bridge_interface> <bridge_address> <namespace> <namespace_address>",
		Aliases: []string{"setup_network_namespace"},
		Short:   "Connect an existing namespace to a bridge",
		Args:    cobra.ExactArgs(4), //nolint:gomnd // bridge, address, namespace, address
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deps.manager.SetupNetworkNamespace(args[0], args[1], args[2], args[3])
		},
	}
}

func (a *app) newDestroyNetworkNamespaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "destroy-network-namespace <namespace>",
		Aliases: []string{"destroy_network_namespace"},
		Short:   "Delete a namespace and the host end of its veth pair",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deps.manager.DestroyNetworkNamespace(args[0])
		},
	}
}

func (a *app) newCreateNamedNamespaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "create-named-namespace <pid> <namespace>",
		Aliases: []string{"create_named_namespace"},
		Short:   "Expose the network namespace of a running process under a name",
		Args: cobra.MatchAll(cobra.ExactArgs(2), func(cmd *cobra.Command, args []string) error { //nolint:gomnd // pid, namespace
			if _, err := parsePID(args[0]); err != nil {
				return err
			}
			return nil
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, _ := parsePID(args[0])
			return a.deps.manager.CreateNamedNamespace(pid, args[1])
		},
	}
}

func parsePID(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, errors.Wrapf(network.ErrInvalidArgument, "pid %q must be a positive integer", s)
	}
	return pid, nil
}

func (a *app) newDestroyNamedNamespaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "destroy-named-namespace <namespace>",
		Aliases: []string{"destroy_named_namespace"},
		Short:   "Remove a namespace handle created by create-named-namespace",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deps.manager.DestroyNamedNamespace(args[0])
		},
	}
}

func (a *app) newDestroyBridgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "destroy-bridge <bridge>",
		Aliases: []string{"destroy_bridge"},
		Short:   "Delete a bridge with no namespaces attached, and its rules",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deps.manager.DestroyBridge(args[0])
		},
	}
}

func (a *app) newDestroyBridgeAndHostLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "destroy-bridge-and-host-link <bridge> <host_interface> <namespace>",
		Aliases: []string{"destroy_bridge_and_host_link"},
		Short:   "Tear down the last namespace on a bridge and then the bridge",
		Args:    cobra.ExactArgs(3), //nolint:gomnd // bridge, host interface, namespace
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deps.manager.DestroyBridgeAndHostLink(args[0], args[1], args[2])
		},
	}
}

func (a *app) newDetectInterfaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "detect-interface",
		Aliases: []string{"detect_interface"},
		Short:   "Print the interface the host routes external traffic through",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ifName, err := a.deps.manager.DetectExternalInterface()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ifName)
			return nil
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the recorded bridges and namespaces as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.deps.manager.Status()
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to encode status")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func (a *app) newExportImageCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export-image <image> <destination>",
		Aliases: []string{"export_image"},
		Short:   "Unpack the filesystem of a container image into <destination>/rootfs",
		Args:    cobra.ExactArgs(2), //nolint:gomnd // image, destination
		RunE: func(cmd *cobra.Command, args []string) error {
			rootfs, err := a.deps.exporter.Export(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.deps.logger.Info("Exported image", zap.String("image", args[0]), zap.String("rootfs", rootfs))
			fmt.Fprintln(cmd.OutOrStdout(), rootfs)
			return nil
		},
	}
}
