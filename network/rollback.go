package network

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type undoAction struct {
	name string
	fn   func() error
}

// rollback collects the inverse of every completed step of a workflow.
type rollback struct {
	actions []undoAction
	logger  *zap.Logger
}

func newRollback(logger *zap.Logger) *rollback {
	return &rollback{logger: logger}
}

// Push registers the inverse of a step that just succeeded.
func (r *rollback) Push(name string, fn func() error) {
	r.actions = append(r.actions, undoAction{name: name, fn: fn})
}

// Run undoes the registered steps newest first. Every action runs even if an earlier one failed.
func (r *rollback) Run() error {
	var errs error
	for i := len(r.actions) - 1; i >= 0; i-- {
		a := r.actions[i]
		r.logger.Info("Rolling back", zap.String("step", a.name))
		if err := a.fn(); err != nil {
			r.logger.Error("Rollback step failed", zap.String("step", a.name), zap.Error(err))
			errs = multierr.Append(errs, newOperationError("rollback "+a.name, err))
		}
	}
	r.actions = nil
	return errs
}

// Commit forgets the registered steps.
func (r *rollback) Commit() {
	r.actions = nil
}

// onError runs the rollback when *errp is set and appends any rollback failure to it.
// It is meant to be deferred.
func (r *rollback) onError(errp *error) {
	if *errp == nil {
		r.Commit()
		return
	}
	if rbErr := r.Run(); rbErr != nil {
		*errp = multierr.Append(*errp, rbErr)
	}
}
