package main

import (
	"context"

	"github.com/cort-runtime/cortnet/configuration"
	"github.com/cort-runtime/cortnet/firewall"
	"github.com/cort-runtime/cortnet/imageexport"
	"github.com/cort-runtime/cortnet/iptables"
	"github.com/cort-runtime/cortnet/log"
	"github.com/cort-runtime/cortnet/netio"
	"github.com/cort-runtime/cortnet/netlink"
	"github.com/cort-runtime/cortnet/netns"
	"github.com/cort-runtime/cortnet/network"
	"github.com/cort-runtime/cortnet/platform"
	"github.com/cort-runtime/cortnet/store"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const iptablesWaitSeconds = 5

func buildDeps(ctx context.Context, cfg *configuration.Config) (*deps, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.Initialize(ctx, &log.Config{
		Level:       level,
		LogPath:     cfg.LogPath,
		MaxSizeInMB: cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		Component:   "cortnet",
		Console:     cfg.LogConsole,
	})

	fsys := afero.NewOsFs()
	kvs, err := store.NewJsonFileStore(cfg.StatePath, fsys, nil)
	if err != nil {
		return nil, err
	}

	fw, err := newInstaller(cfg.FirewallBackend, logger)
	if err != nil {
		return nil, err
	}

	plc := platform.NewExecClient(logger)
	m := network.NewManager(kvs, netlink.NewNetlink(), netns.NewWithDir(cfg.NetnsDir), network.NewNamespaceClient(),
		&netio.NetIO{}, plc, fw, fsys, network.ManagerOptions{
			LockTimeout:         cfg.LockTimeout,
			ProbeAddress:        cfg.ProbeAddress,
			MoveConfirmAttempts: cfg.MoveConfirmAttempts,
			MoveConfirmDelay:    cfg.MoveConfirmDelay,
		}, logger)

	return &deps{
		manager:  m,
		exporter: imageexport.NewRuntimeExporter(cfg.ContainerRuntime, plc, fsys, logger),
		logger:   logger,
	}, nil
}

func newInstaller(backend string, logger *zap.Logger) (firewall.Installer, error) {
	switch backend {
	case configuration.FirewallNftables:
		conn, err := firewall.NewNftablesConn()
		if err != nil {
			return nil, errors.Wrap(err, "failed to open nftables connection")
		}
		return firewall.NewNftablesInstaller(conn, logger), nil
	default:
		ipt, err := iptables.New(iptablesWaitSeconds)
		if err != nil {
			return nil, err
		}
		return firewall.NewIptablesInstaller(ipt, logger), nil
	}
}
