package platform

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultExecTimeout = 10
)

type execClient struct {
	Timeout time.Duration
	logger  *zap.Logger
}

//nolint:revive // ExecClient make sense
type ExecClient interface {
	// ExecuteCommand runs name with args and returns its combined output.
	ExecuteCommand(ctx context.Context, name string, args ...string) (string, error)
	// GetLastRebootTime returns the time the host last booted, in UTC.
	GetLastRebootTime() (time.Time, error)
}

func NewExecClient(logger *zap.Logger) ExecClient {
	return &execClient{
		Timeout: defaultExecTimeout * time.Second,
		logger:  logger,
	}
}

func NewExecClientTimeout(timeout time.Duration, logger *zap.Logger) ExecClient {
	return &execClient{
		Timeout: timeout,
		logger:  logger,
	}
}
