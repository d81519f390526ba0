// File: internal/pipeline/runner.go
// Brief: Sequential stage execution over the declared order.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
)

// ActionResult is what a stage action reports back. Details are merged
// into the stage's persisted detail map.
type ActionResult struct {
	OK      bool
	Message string
	Details map[string]any
}

// Action is the opaque collaborator bound to a stage. The runner never
// inspects how an action achieves its result.
type Action interface {
	Execute(ctx context.Context, resolved cty.Value) ActionResult
}

// RunOptions is the caller policy layered on top of the orchestrator
// core: whether completed stages re-run and whether a failure stops the
// run.
type RunOptions struct {
	Force           bool
	ContinueOnError bool
}

// Runner executes stage actions one at a time in declared order,
// recording every transition through the orchestrator. Stages with no
// bound action fail rather than silently pass.
type Runner struct {
	orch    *Orchestrator
	actions map[string]Action
	opts    RunOptions
	logger  *zap.Logger
}

func NewRunner(orch *Orchestrator, actions map[string]Action, opts RunOptions, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{orch: orch, actions: actions, opts: opts, logger: logger}
}

// Run drives the pipeline. It returns an error when a stage failed and
// the policy stops on failure, or an aggregate error when
// continue-on-error left failures behind. Context cancellation stops
// the run between stages.
func (r *Runner) Run(ctx context.Context, resolved cty.Value) error {
	var failed []string
	for _, name := range r.orch.Graph().Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.orch.ShouldSkip(name, r.opts.Force) {
			r.logger.Info("stage already completed, skipping", zap.String("stage", name))
			continue
		}
		if err := r.orch.Start(name); err != nil {
			return err
		}
		res := r.execute(ctx, name, resolved)
		if res.OK {
			if err := r.orch.Complete(name, res.Details); err != nil {
				return err
			}
			continue
		}
		if err := r.orch.Fail(name, res.Message, res.Details); err != nil {
			return err
		}
		if !r.opts.ContinueOnError {
			return fmt.Errorf("stage %s failed: %s", name, res.Message)
		}
		failed = append(failed, name)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d stage(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// execute invokes the bound action, converting a panic inside the
// action into a stage failure so one bad collaborator cannot take down
// the run bookkeeping.
func (r *Runner) execute(ctx context.Context, name string, resolved cty.Value) (res ActionResult) {
	act, ok := r.actions[name]
	if !ok {
		return ActionResult{OK: false, Message: "no action bound for stage"}
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("stage action panicked", zap.String("stage", name), zap.Any("panic", p))
			res = ActionResult{OK: false, Message: fmt.Sprintf("action panicked: %v", p)}
		}
	}()
	return act.Execute(ctx, resolved)
}
