package platform

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const uptimeLayout = "2006-01-02 15:04:05"

// ErrExecTimeout is returned when a command outlives the client timeout.
var ErrExecTimeout = errors.New("command timed out")

func (p *execClient) ExecuteCommand(ctx context.Context, name string, args ...string) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmdline := strings.TrimSpace(name + " " + strings.Join(args, " "))
	p.logger.Info("Executing command", zap.String("command", cmdline))

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return string(out), errors.Wrapf(ErrExecTimeout, "%s after %s", cmdline, p.Timeout)
	}
	if err != nil {
		p.logger.Error("command failed", zap.String("command", cmdline), zap.String("output", string(out)), zap.Error(err))
		return string(out), errors.Wrapf(err, "%s failed: %s", cmdline, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (p *execClient) GetLastRebootTime() (time.Time, error) {
	out, err := p.ExecuteCommand(context.Background(), "uptime", "-s")
	if err != nil {
		return time.Time{}.UTC(), err
	}

	bootTime, err := time.ParseInLocation(uptimeLayout, strings.TrimSpace(out), time.Local)
	if err != nil {
		p.logger.Error("Failed to parse boot time", zap.String("output", out), zap.Error(err))
		return time.Time{}.UTC(), errors.Wrapf(err, "failed to parse boot time %q", out)
	}
	return bootTime.UTC(), nil
}
