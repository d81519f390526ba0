// File: internal/actions/actions.go
// Brief: Stage action collaborators: shell commands and manual steps.

// Package actions binds pipeline stages to the commands that do the
// actual provisioning work. The pipeline treats every action as an
// opaque callable; everything command-specific lives here.
package actions

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"

	"github.com/example/devup/internal/configtree"
	"github.com/example/devup/internal/pipeline"
)

const outputTailLimit = 2000

// CommandAction runs one shell command for a stage. The resolved
// configuration is exported to the child process as DEVUP_* environment
// variables so commands can consume resolved paths and versions without
// re-parsing the config file.
type CommandAction struct {
	Stage   string
	Command string
	Dir     string
	Logger  *zap.Logger
}

func (a *CommandAction) Execute(ctx context.Context, resolved cty.Value) pipeline.ActionResult {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	args, err := shellwords.Parse(a.Command)
	if err != nil {
		return pipeline.ActionResult{OK: false, Message: fmt.Sprintf("parse command: %v", err)}
	}
	if len(args) == 0 {
		return pipeline.ActionResult{OK: false, Message: "empty command"}
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = a.Dir
	cmd.Env = append(os.Environ(), configEnv(resolved)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Info("running stage command", zap.String("stage", a.Stage), zap.String("command", a.Command))
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	details := map[string]any{
		"command":         a.Command,
		"durationSeconds": elapsed.Seconds(),
	}
	if tail := outputTail(out.String()); tail != "" {
		details["output"] = tail
	}
	if runErr != nil {
		return pipeline.ActionResult{
			OK:      false,
			Message: fmt.Sprintf("command %q: %v", a.Command, runErr),
			Details: details,
		}
	}
	return pipeline.ActionResult{
		OK:      true,
		Message: "command succeeded",
		Details: details,
	}
}

// ManualAction stands in for a stage that has no configured command.
// It succeeds immediately and records that the step was acknowledged
// rather than executed, so the operator can see what still needs doing
// by hand.
type ManualAction struct {
	Stage       string
	Description string
	Logger      *zap.Logger
}

func (a *ManualAction) Execute(_ context.Context, _ cty.Value) pipeline.ActionResult {
	if a.Logger != nil {
		a.Logger.Info("no command configured, marking as manual step",
			zap.String("stage", a.Stage))
	}
	return pipeline.ActionResult{
		OK:      true,
		Message: "manual step acknowledged",
		Details: map[string]any{"manual": true, "step": a.Description},
	}
}

// FromConfig binds every stage in the graph to an action. Stages with a
// command under stage_commands.<name> in the resolved config get a
// CommandAction running in base_paths.workspace_root; the rest become
// manual steps.
func FromConfig(resolved cty.Value, graph *pipeline.Graph, logger *zap.Logger) map[string]pipeline.Action {
	workDir, _ := configtree.LookupString(resolved, "base_paths.workspace_root")
	out := make(map[string]pipeline.Action, graph.Len())
	for _, def := range graph.Definitions() {
		if command, ok := configtree.LookupString(resolved, "stage_commands."+def.Name); ok && strings.TrimSpace(command) != "" {
			out[def.Name] = &CommandAction{
				Stage:   def.Name,
				Command: command,
				Dir:     workDir,
				Logger:  logger,
			}
			continue
		}
		out[def.Name] = &ManualAction{Stage: def.Name, Description: def.Description, Logger: logger}
	}
	return out
}

// configEnv flattens the resolved config into DEVUP_* variables, e.g.
// paths.workspace_root becomes DEVUP_PATHS_WORKSPACE_ROOT.
func configEnv(resolved cty.Value) []string {
	flat := configtree.Flatten(resolved)
	out := make([]string, 0, len(flat))
	replacer := strings.NewReplacer(".", "_", "-", "_")
	for k, v := range flat {
		out = append(out, "DEVUP_"+strings.ToUpper(replacer.Replace(k))+"="+v)
	}
	return out
}

func outputTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= outputTailLimit {
		return s
	}
	return s[len(s)-outputTailLimit:]
}
