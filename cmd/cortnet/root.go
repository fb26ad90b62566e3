package main

import (
	"context"

	"github.com/cort-runtime/cortnet/configuration"
	"github.com/cort-runtime/cortnet/imageexport"
	"github.com/cort-runtime/cortnet/network"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type networkManager interface {
	CreateBridge(extIf, bridgeAddr, bridgeName string) error
	EnsureBridge(extIf, bridgeAddr, bridgeName string) error
	ApplyBridgeFirewall(extIf, bridgeAddr, bridgeName string) error
	CreateNetworkNamespace(bridge, bridgeAddr, ns, nsAddr string) error
	SetupNetworkNamespace(bridge, bridgeAddr, ns, nsAddr string) error
	DestroyNetworkNamespace(ns string) error
	CreateNamedNamespace(pid int, ns string) error
	DestroyNamedNamespace(ns string) error
	DestroyBridge(bridge string) error
	DestroyBridgeAndHostLink(bridge, hostIf, ns string) error
	Status() (*network.Status, error)
	DetectExternalInterface() (string, error)
}

var _ networkManager = (*network.Manager)(nil)

// deps are the collaborators a command runs against.
type deps struct {
	manager  networkManager
	exporter imageexport.Exporter
	logger   *zap.Logger
}

type depsBuilder func(ctx context.Context, cfg *configuration.Config) (*deps, error)

type app struct {
	v     *viper.Viper
	build depsBuilder
	deps  *deps
}

func newRootCmd(build depsBuilder) *cobra.Command {
	a := &app{v: viper.New(), build: build}

	rootCmd := &cobra.Command{
		Use:   "cortnet",
		Short: "Provision a host bridge and connect network namespaces to it",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configuration.Load(a.v)
			if err != nil {
				return err
			}
			d, err := a.build(cmd.Context(), cfg)
			if err != nil {
				return errors.Wrap(err, "failed to initialize")
			}
			a.deps = d
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	addConfigFlags(flags)
	cobra.CheckErr(a.v.BindPFlags(flags))

	rootCmd.AddCommand(
		a.newCreateBridgeCmd(),
		a.newApplyFirewallCmd(),
		a.newCreateNetworkNamespaceCmd(),
		a.newSetupNetworkNamespaceCmd(),
		a.newDestroyNetworkNamespaceCmd(),
		a.newCreateNamedNamespaceCmd(),
		a.newDestroyNamedNamespaceCmd(),
		a.newDestroyBridgeCmd(),
		a.newDestroyBridgeAndHostLinkCmd(),
		a.newDetectInterfaceCmd(),
		a.newStatusCmd(),
		a.newExportImageCmd(),
	)
	return rootCmd
}

func addConfigFlags(flags *pflag.FlagSet) {
	flags.String("configuration-path", "", "path to a configuration file")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("log-console", true, "also log to stderr")
	flags.String("state-path", "/var/lib/cortnet/state.json", "path of the state file")
	flags.String("netns-dir", "/run/netns", "directory holding named namespace handles")
	flags.String("firewall-backend", configuration.FirewallIptables, "firewall backend: iptables or nftables")
	flags.String("container-runtime", imageexport.DefaultRuntime, "container runtime CLI used by export-image")
}
