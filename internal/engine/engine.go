// Package engine is the execution engine's public entry point: given a
// parsed pipeline, it polls the job table, fabricates the pipeline's
// children via the launcher, and either waits for them in the
// foreground or hands them to the job table as a background job, per
// spec.md §4.6.
package engine

import (
	"fmt"
	"syscall"

	"quash/internal/command"
	"quash/internal/diag"
	"quash/internal/environment"
	"quash/internal/job"
	"quash/internal/launcher"
	"quash/internal/planner"
)

// Engine is an explicit handle over the execution engine's state (the
// job table and environment facade), so tests can instantiate several
// independent engines instead of relying on process-wide globals
// (spec.md §9).
type Engine struct {
	Env      *environment.Facade
	Jobs     *job.Table
	launcher *launcher.Launcher
}

// New returns an Engine wired to env and jobs.
func New(env *environment.Facade, jobs *job.Table) *Engine {
	return &Engine{Env: env, Jobs: jobs, launcher: launcher.New(env)}
}

// ExitRequested is returned by Run when the pipeline was a bare "exit"
// and the caller (the REPL) should stop reading further input.
var ExitRequested = fmt.Errorf("quash: exit requested")

// Run executes one parsed pipeline, per spec.md §4.6:
//  1. an empty pipeline is a no-op;
//  2. the job table is polled so completion notices print before this
//     pipeline's own output;
//  3. a bare Exit pipeline returns ExitRequested without launching
//     anything;
//  4. every stage is launched in order, building up a pid sequence;
//  5. a backgrounded pipeline is handed to the job table and Run
//     returns immediately;
//  6. otherwise Run blocks, reaping every spawned pid, and returns
//     after the last one.
func (e *Engine) Run(pipeline command.Pipeline, renderedText string) error {
	if pipeline.Empty() {
		return nil
	}

	e.Jobs.Poll()

	if pipeline.IsBareExit() {
		return ExitRequested
	}

	var slots launcher.Slots
	var pids []int

	for index, stage := range pipeline.Stages {
		if planner.Classify(stage.Cmd.Kind) == planner.Sentinel {
			// Exit outside the bare-exit position is ignored
			// (spec.md §4.6); its pipe slot, if any, is simply
			// never opened.
			continue
		}

		pid, err := e.launcher.Launch(stage, index, &slots, e.Jobs)
		if err != nil {
			diag.Print(err)
			// Fork/pipe/redirect failure aborts the remaining stages
			// but already-spawned children are still reaped below
			// (spec.md §7).
			break
		}
		if pid != 0 {
			pids = append(pids, pid)
		}
	}

	if pipeline.Background() {
		if len(pids) == 0 {
			// Nothing was actually forked (e.g. a backgrounded
			// parent-only builtin); there is no job to track.
			return nil
		}
		e.Jobs.Register(pids, renderedText)
		return nil
	}

	return reapAll(pids)
}

// reapAll blocks on every pid in order, discarding exit statuses: the
// shell does not map child exit codes (spec.md §6).
func reapAll(pids []int) error {
	for _, pid := range pids {
		var status syscall.WaitStatus
		if _, err := syscall.Wait4(pid, &status, 0, nil); err != nil {
			return fmt.Errorf("quash: engine: wait: %w", err)
		}
	}
	return nil
}
