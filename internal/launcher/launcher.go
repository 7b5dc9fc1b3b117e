// Package launcher fabricates the child processes that run a
// pipeline's stages, wiring their standard streams through anonymous
// pipes and file redirections, per spec.md §4.3.
package launcher

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/term"

	"quash/internal/builtin"
	"quash/internal/command"
	"quash/internal/environment"
	"quash/internal/job"
	"quash/internal/planner"
)

// colorAware lists external programs that get "--color=always" added
// when stdout is a terminal, kept from the teacher's
// internal/external.Execute so interactive runs keep color while
// redirected/piped runs (and tests) stay byte-for-byte comparable.
var colorAware = map[string]bool{"ls": true, "grep": true}

// Slots realizes PipeSlots: two reusable pipe-descriptor pairs, so a
// pipeline never holds more than two pipes open in the parent at
// once regardless of its length. A zero-value Slots is ready to use
// and must not be shared across concurrently-running pipelines.
type Slots struct {
	read  [2]*os.File
	write [2]*os.File
}

// openWrite creates a new pipe for stage index's output, storing both
// ends in the slot index%2, and returns the write end.
func (s *Slots) openWrite(index int) (*os.File, error) {
	slot := index % 2
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	s.read[slot] = r
	s.write[slot] = w
	return w, nil
}

// readEnd returns the read end stage index should consume, i.e. the
// one opened by stage index-1.
func (s *Slots) readEnd(index int) *os.File {
	return s.read[(index-1+2)%2]
}

// closeRead closes (and forgets) the read end stage index was handed,
// idempotently.
func (s *Slots) closeRead(index int) {
	slot := (index - 1 + 2) % 2
	if s.read[slot] != nil {
		_ = s.read[slot].Close()
		s.read[slot] = nil
	}
}

// Launcher fabricates and wires up one pipeline stage at a time.
type Launcher struct {
	env *environment.Facade
}

// New returns a Launcher backed by env for PATH resolution.
func New(env *environment.Facade) *Launcher {
	return &Launcher{env: env}
}

// Launch realizes spec.md §4.3's launch(stage, index, pipe_slots)
// contract for a single stage of a pipeline currently being built in
// slots. It returns the spawned child's pid, or 0 when nothing was
// forked — which happens for ParentOnly builtins (Export/Cd/Kill,
// which must run in the shell process itself, per spec.md §4.2) and
// for ChildCapable builtins (Echo/Pwd/Jobs/Ps), whose output is
// instead directed through the stage's designated writer exactly as a
// forked child's would be, following the teacher's
// internal/ebash.runPipe, which never forks for builtins either.
func (l *Launcher) Launch(stage command.Stage, index int, slots *Slots, jobs *job.Table) (pid int, err error) {
	class := planner.Classify(stage.Cmd.Kind)

	// Pipe creation must precede fork (spec.md §4.3 step 1 / §5).
	var pipeWriter *os.File
	if stage.Flags&command.PipeOut != 0 {
		pipeWriter, err = slots.openWrite(index)
		if err != nil {
			return 0, fmt.Errorf("quash: launcher: pipe: %w", err)
		}
	}

	switch class {
	case planner.ParentOnly:
		return l.runParentOnly(stage, index, slots, pipeWriter, jobs)
	case planner.ChildCapable:
		return l.runChildCapable(stage, index, slots, pipeWriter, jobs)
	default:
		return l.runExternal(stage, index, slots, pipeWriter)
	}
}

// runParentOnly handles the spec.md §4.2 tie-break: a parent-only
// builtin always runs in the shell process, even when piped or
// backgrounded. Any pipe ends assigned to it are closed immediately,
// a known limitation documented in the spec: a downstream reader sees
// EOF with nothing produced, and an upstream writer finds the read end
// of its pipe already closed.
func (l *Launcher) runParentOnly(stage command.Stage, index int, slots *Slots, pipeWriter *os.File, jobs *job.Table) (int, error) {
	if stage.Flags&command.PipeIn != 0 {
		slots.closeRead(index)
	}
	if pipeWriter != nil {
		_ = pipeWriter.Close()
	}
	return 0, builtin.ParentRun(stage.Cmd, l.env, jobs)
}

// runChildCapable dispatches a child-capable builtin with its output
// directed at the stage's designated writer (the pipe write end if
// piping out, else the redirection file, else stdout).
func (l *Launcher) runChildCapable(stage command.Stage, index int, slots *Slots, pipeWriter *os.File, jobs *job.Table) (int, error) {
	writer, redirectFile, openErr := resolveWriter(stage, pipeWriter)
	if openErr != nil {
		if stage.Flags&command.PipeIn != 0 {
			slots.closeRead(index)
		}
		if pipeWriter != nil {
			_ = pipeWriter.Close()
		}
		return 0, fmt.Errorf("quash: launcher: redirect: %w", openErr)
	}

	runErr := builtin.ChildRun(stage.Cmd, writer, l.env, jobs)

	if redirectFile != nil {
		_ = redirectFile.Close()
	}
	if pipeWriter != nil {
		_ = pipeWriter.Close()
	}
	if stage.Flags&command.PipeIn != 0 {
		slots.closeRead(index)
	}
	return 0, runErr
}

// runExternal forks a real child process for an external program via
// os/exec (Go's idiomatic stand-in for fork+exec), wiring its stdin,
// stdout and stderr per the redirection/pipe flags.
func (l *Launcher) runExternal(stage command.Stage, index int, slots *Slots, pipeWriter *os.File) (int, error) {
	name := stage.Cmd.Argv[0]
	resolved, ok := l.env.ResolveOnPath(name)
	if !ok {
		if pipeWriter != nil {
			_ = pipeWriter.Close()
		}
		if stage.Flags&command.PipeIn != 0 {
			slots.closeRead(index)
		}
		fmt.Fprintf(os.Stderr, "ERROR: Failed to execute program: %s\n", name)
		return 0, fmt.Errorf("quash: resolve: %s: not found", name)
	}

	cmd := exec.Command(resolved, stage.Cmd.Argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, closeStdin, err := resolveReader(stage, slots, index)
	if err != nil {
		if pipeWriter != nil {
			_ = pipeWriter.Close()
		}
		return 0, fmt.Errorf("quash: launcher: redirect: %w", err)
	}
	cmd.Stdin = stdin

	stdout, redirectFile, err := resolveWriter(stage, pipeWriter)
	if err != nil {
		if closeStdin != nil {
			_ = closeStdin.Close()
		}
		if stage.Flags&command.PipeIn != 0 {
			slots.closeRead(index)
		}
		return 0, fmt.Errorf("quash: launcher: redirect: %w", err)
	}
	cmd.Stdout = stdout
	if colorAware[name] && term.IsTerminal(int(stdout.Fd())) {
		cmd.Args = append([]string{cmd.Args[0], "--color=always"}, cmd.Args[1:]...)
	}

	startErr := cmd.Start()

	// The parent's copies of descriptors it handed to the child are
	// no longer needed, whether or not Start succeeded; closing them
	// lets EOF propagate downstream (spec.md §5).
	if closeStdin != nil {
		_ = closeStdin.Close()
	}
	if redirectFile != nil {
		_ = redirectFile.Close()
	}
	if pipeWriter != nil {
		_ = pipeWriter.Close()
	}
	if stage.Flags&command.PipeIn != 0 {
		slots.closeRead(index)
	}

	if startErr != nil {
		return 0, fmt.Errorf("quash: launcher: start %s: %w", name, startErr)
	}

	return cmd.Process.Pid, nil
}

// resolveReader picks stdin for a stage: the previous stage's pipe
// read end, else an input redirection file, else the shell's own
// stdin. The returned closer (if non-nil) is the parent's copy that
// should be closed after Start.
func resolveReader(stage command.Stage, slots *Slots, index int) (*os.File, *os.File, error) {
	if stage.Flags&command.PipeIn != 0 {
		r := slots.readEnd(index)
		return r, nil, nil // ownership of the read end transfers to the child; parent drops its reference via closeRead after Start
	}
	if stage.InputFile != "" {
		f, err := os.Open(stage.InputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", stage.InputFile, err)
		}
		return f, f, nil
	}
	return os.Stdin, nil, nil
}

// resolveWriter picks stdout for a stage: the pipe write end if
// piping out, else an output redirection file (created/truncated, or
// opened for append), else the shell's own stdout.
func resolveWriter(stage command.Stage, pipeWriter *os.File) (*os.File, *os.File, error) {
	if pipeWriter != nil {
		return pipeWriter, nil, nil
	}
	if stage.OutputFile != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if stage.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(stage.OutputFile, flags, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", stage.OutputFile, err)
		}
		return f, f, nil
	}
	return os.Stdout, nil, nil
}
