// Package builtin implements the two builtin dispatch points described
// in spec.md §4.4: ChildRun for builtins whose output is directed
// through a stage's writer exactly as a forked child's would be
// (Echo, Pwd, Jobs, Ps), and ParentRun for builtins that mutate shell
// state and must run in the shell process itself (Export, Cd, Kill).
package builtin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"

	ps "github.com/mitchellh/go-ps"

	"quash/internal/command"
	"quash/internal/environment"
	"quash/internal/job"
)

// ChildRun executes a child-capable builtin, writing its output to w.
// It never mutates shell state and is safe to call with w pointed at
// a pipe write end or a redirection file.
func ChildRun(cmd command.Command, w io.Writer, env *environment.Facade, jobs *job.Table) error {
	switch cmd.Kind {
	case command.Echo:
		return echo(cmd.Argv, w)
	case command.Pwd:
		return pwd(w, env)
	case command.Jobs:
		return jobsList(w, jobs)
	case command.Ps:
		return processStatus(w)
	default:
		return nil
	}
}

// ParentRun executes a parent-only builtin directly in the shell
// process, mutating shell state (the environment or the job table).
func ParentRun(cmd command.Command, env *environment.Facade, jobs *job.Table) error {
	switch cmd.Kind {
	case command.Export:
		return export(cmd, env)
	case command.Cd:
		return cd(cmd, env)
	case command.Kill:
		return kill(cmd, jobs)
	default:
		return nil
	}
}

// echo writes each argument (excluding the command name) followed by
// a single space, then a trailing newline. The trailing space before
// the newline is preserved deliberately (spec.md §9, §8 scenario 1).
func echo(argv []string, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, arg := range argv[1:] {
		fmt.Fprintf(bw, "%s ", arg)
	}
	fmt.Fprintln(bw)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("quash: echo: %w", err)
	}
	return nil
}

// pwd writes the current working directory plus a newline.
func pwd(w io.Writer, env *environment.Facade) error {
	dir, err := env.CurrentDirectory()
	if err != nil {
		return fmt.Errorf("quash: pwd: %w", err)
	}
	if _, err := fmt.Fprintln(w, dir); err != nil {
		return fmt.Errorf("quash: pwd: write: %w", err)
	}
	return nil
}

// jobsList writes one line per live background job.
func jobsList(w io.Writer, jobs *job.Table) error {
	for _, j := range jobs.List() {
		if _, err := fmt.Fprintf(w, "[%d]\t%d\t%s\n", j.ID, j.Leader, j.Command); err != nil {
			return fmt.Errorf("quash: jobs: write: %w", err)
		}
	}
	return nil
}

// export sets an environment variable, always overwriting.
func export(cmd command.Command, env *environment.Facade) error {
	if err := env.Set(cmd.Name, cmd.Value); err != nil {
		return fmt.Errorf("quash: export: %w", err)
	}
	return nil
}

// cd resolves the target directory to an absolute path, chdirs into
// it, and writes OLD_PWD/PWD into the environment. Per spec.md §9's
// Open Question resolution, PWD is set to the resolved absolute path,
// not the raw argument. On failure an error is returned and the
// working directory is left unchanged.
func cd(cmd command.Command, env *environment.Facade) error {
	target := cmd.Path
	if target == "" {
		target = env.Home()
	}
	if target == "" {
		return fmt.Errorf("quash: cd: HOME not set")
	}

	resolved, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("quash: cd: %s: %w", target, err)
	}

	oldPWD, err := env.CurrentDirectory()
	if err != nil {
		return fmt.Errorf("quash: cd: %w", err)
	}

	if err := os.Chdir(resolved); err != nil {
		return fmt.Errorf("quash: cd: %s: %w", target, err)
	}

	if err := env.Set("OLD_PWD", oldPWD); err != nil {
		return fmt.Errorf("quash: cd: %w", err)
	}
	if err := env.Set("PWD", resolved); err != nil {
		return fmt.Errorf("quash: cd: %w", err)
	}
	return nil
}

// kill forwards a signal to every process tracked by a job id. An
// unknown job id is a silent no-op (spec.md §9 Open Question).
func kill(cmd command.Command, jobs *job.Table) error {
	jobs.Signal(cmd.JobID, syscall.Signal(cmd.Signal))
	return nil
}

// processStatus prints a ps-like listing of processes attached to the
// same controlling terminal as the shell, kept from the teacher's
// internal/builtin.processStatus.
func processStatus(w io.Writer) error {
	path, re, processes, err := psPrep(w)
	if err != nil {
		return fmt.Errorf("quash: ps: %w", err)
	}

	for _, process := range processes {
		pid := process.Pid()
		link, err := os.Readlink(fmt.Sprintf("/proc/%d/fd/0", pid))
		if err == nil && re.MatchString(link) {
			if _, err := fmt.Fprintf(w, "%7d pts/%-8s 00:00:00 %s\n", pid, filepath.Base(path), process.Executable()); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
	return nil
}

func psPrep(w io.Writer) (string, *regexp.Regexp, []ps.Process, error) {
	path, err := os.Readlink("/proc/self/fd/0")
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to read /proc/self/fd/0: %w", err)
	}

	re := regexp.MustCompile(fmt.Sprintf(`/dev/pts/%s$`, filepath.Base(path)))

	processes, err := ps.Processes()
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get process list: %w", err)
	}

	if _, err := fmt.Fprintln(w, "    PID TTY          TIME CMD"); err != nil {
		return "", nil, nil, fmt.Errorf("write: %w", err)
	}
	return path, re, processes, nil
}

// ResolveSignal accepts either a bare signal number or a symbolic name
// such as "TERM" or "SIGTERM" and returns its numeric value.
func ResolveSignal(spec string) (int, error) {
	if n, err := strconv.Atoi(spec); err == nil {
		return n, nil
	}
	name := spec
	if len(name) >= 3 && name[:3] == "SIG" {
		name = name[3:]
	}
	if sig, ok := namedSignals[name]; ok {
		return int(sig), nil
	}
	return 0, fmt.Errorf("quash: kill: %s: invalid signal specification", spec)
}

var namedSignals = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"TERM": syscall.SIGTERM,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
	"CONT": syscall.SIGCONT,
	"STOP": syscall.SIGSTOP,
	"TSTP": syscall.SIGTSTP,
}
