// Package shell contains the interactive REPL loop and orchestration
// logic for the quash shell. It wires together configuration, the
// readline-based terminal, the parser, and the execution engine.
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"quash/internal/completer"
	"quash/internal/config"
	"quash/internal/diag"
	"quash/internal/engine"
	"quash/internal/environment"
	"quash/internal/job"
	"quash/internal/painter"
	"quash/internal/parser"
	"quash/internal/prompt"
)

// Shell holds the runtime state of the interactive shell: the readline
// terminal, the prompt painter, the completer, and the execution
// engine the parsed pipelines run against.
type Shell struct {
	mu            sync.Mutex
	sigCh         chan os.Signal
	stopCh        chan struct{}
	painter       painter.Painter
	completer     *completer.Completer
	terminal      *readline.Instance
	engine        *engine.Engine
	descriptors   int
	checkCounter  uint
	checkInterval uint
}

// Run starts the main interactive loop of the shell. It boots the
// shell, then repeatedly reads lines from the terminal, parses them
// into pipelines, runs those pipelines through the engine, and reports
// any errors. Run returns only on EOF or when the user runs "exit".
func Run() {

	shell, err := boot()
	if err != nil {
		panic(err)
	}

	defer shell.exit()

	for {

		shell.terminal.Config.AutoComplete = shell.completer
		shell.completer.Update()
		shell.terminal.SetPrompt(prompt.Update(shell.painter))

		line, err := shell.terminal.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				return
			}
			panic(err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entries, err := parser.Parse(line)
		if err != nil {
			shell.sysmon(err)
			continue
		}

		done, err := shell.runEntries(entries)
		shell.sysmon(err)
		if done {
			return
		}

	}

}

// boot initializes the shell runtime: it loads configuration (falling
// back to defaults on error), creates a readline terminal instance,
// records the baseline descriptor count for later leak detection,
// constructs the environment facade, job table and engine, and starts
// the interrupt-handling goroutine.
func boot() (*Shell, error) {

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cfg = config.Default()
	}

	readlineCfg := &readline.Config{
		HistoryFile:     cfg.Terminal.HistoryFile,
		HistoryLimit:    cfg.Terminal.HistoryLimit,
		InterruptPrompt: cfg.Terminal.InterruptPrompt,
		EOFPrompt:       "\n" + cfg.Terminal.EOFPrompt,
	}

	terminal, err := readline.NewEx(readlineCfg)
	if err != nil {
		return nil, fmt.Errorf("quash: boot: failed to create new terminal instance: %w", err)
	}

	descriptors, err := os.ReadDir(fmt.Sprintf("/proc/%d/fd", os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("quash: boot: cannot read fd directory: %w", err)
	}

	env := environment.New(cfg.Engine.PathCacheTTL)
	jobs := job.NewTable(os.Stdout)
	jobs.SetVerboseKill(cfg.Engine.JobsVerboseKill)

	shell := &Shell{
		terminal:      terminal,
		sigCh:         make(chan os.Signal, 1),
		stopCh:        make(chan struct{}),
		descriptors:   len(descriptors),
		checkInterval: cfg.Terminal.CheckInterval,
		painter:       painter.NewPainter(cfg.Prompt),
		completer:     completer.New(jobs),
		engine:        engine.New(env, jobs),
	}

	signal.Notify(shell.sigCh, os.Interrupt)
	go shell.interruptHandler()

	return shell, nil

}

// interruptHandler listens for OS interrupt signals and discards them,
// so that Ctrl-C does not terminate the shell itself; it does not relay
// the signal to any child. The goroutine exits when the shell's stop
// channel is closed.
func (shell *Shell) interruptHandler() {
	for {
		select {
		case <-shell.stopCh:
			return
		case <-shell.sigCh:
			// Foreground children inherit the shell's process group
			// and receive SIGINT directly from the terminal driver;
			// nothing further to forward here (spec.md §5 — no
			// cross-process signal relay is required for a
			// single-threaded engine that does not hold external pids
			// across Readline calls).
		}
	}
}

// exit performs cleanup of the shell runtime: it stops signal
// delivery, signals the interrupt handler to stop, and closes the
// readline terminal.
func (shell *Shell) exit() {
	signal.Stop(shell.sigCh)
	close(shell.stopCh)
	_ = shell.terminal.Close()
}

// runEntries runs each &&/||-separated Entry in order through the
// engine, honoring NextAnd/NextOr between them exactly as the
// teacher's runPipeline does, substituting the engine's exit-requested
// sentinel for the teacher's bare "exit" special case. An entry counts
// as failed only when the engine returns an error (for example a
// program that cannot be resolved or started); a child's non-zero exit
// status is not seen here. Errors of individual entries are reported
// and the remaining entries are still considered.
func (shell *Shell) runEntries(entries []parser.Entry) (bool, error) {

	var shouldRun bool
	var lastFailed bool

	for i, entry := range entries {

		shouldRun = true

		if i > 0 {
			previous := entries[i-1]
			if previous.NextAnd && lastFailed {
				shouldRun = false
			} else if previous.NextOr && !lastFailed {
				shouldRun = false
			}
		}

		if !shouldRun {
			continue
		}

		err := shell.engine.Run(entry.Pipeline, entry.Rendered)
		if errors.Is(err, engine.ExitRequested) {
			fmt.Println("exit")
			return true, nil
		}
		lastFailed = err != nil
		if err != nil {
			diag.Print(err)
		}

	}

	return false, nil

}

// sysmon logs any provided error and checks for file descriptor leaks
// relative to the baseline recorded at boot. sysmon is called once per
// non-empty input line, and the check runs only every checkInterval
// calls (0 disables it); checkCounter resets after each check.
func (shell *Shell) sysmon(err error) {

	if err != nil {
		diag.Print(err)
	}

	shell.mu.Lock()
	shell.checkCounter++
	counter, interval := shell.checkCounter, shell.checkInterval
	if counter == interval && interval != 0 {
		shell.checkCounter = 0
	}
	shell.mu.Unlock()

	if interval == 0 || counter != interval {
		return
	}

	pid := os.Getpid()
	fdDir := fmt.Sprintf("/proc/%d/fd", pid)
	currDescriptors, err := os.ReadDir(fdDir)
	if err != nil {
		diag.Errorf("sysmon: cannot read fd dir: %v", err)
		return
	}

	if len(currDescriptors) > shell.descriptors {
		openDescriptors := make([]string, 0, len(currDescriptors))
		for _, d := range currDescriptors {
			openDescriptors = append(openDescriptors, d.Name())
		}
		panic(fmt.Errorf(
			"descriptor leak detected: %d file descriptors still open (PID=%d, open fds=%v)",
			len(currDescriptors)-shell.descriptors, pid, openDescriptors,
		))
	}

}
