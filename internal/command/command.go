// Package command defines the data model the execution engine consumes:
// a tagged Command variant, a Stage (command plus redirection/pipe
// metadata) and a Pipeline (an ordered sequence of stages terminated by
// an End sentinel).
package command

import (
	"fmt"
	"strings"
)

// Kind identifies which variant a Command holds.
type Kind int

const (
	// External runs a program found on PATH (or an absolute/relative path).
	External Kind = iota
	// Echo prints its arguments.
	Echo
	// Export sets a shell environment variable.
	Export
	// Cd changes the shell's working directory.
	Cd
	// Kill sends a signal to every process tracked by a job.
	Kill
	// Pwd prints the current working directory.
	Pwd
	// Jobs lists background jobs.
	Jobs
	// Ps lists processes attached to the shell's controlling terminal.
	Ps
	// Exit requests termination of the REPL loop.
	Exit
	// End is the pipeline-terminating sentinel.
	End
)

func (k Kind) String() string {
	switch k {
	case External:
		return "External"
	case Echo:
		return "Echo"
	case Export:
		return "Export"
	case Cd:
		return "Cd"
	case Kill:
		return "Kill"
	case Pwd:
		return "Pwd"
	case Jobs:
		return "Jobs"
	case Ps:
		return "Ps"
	case Exit:
		return "Exit"
	case End:
		return "End"
	default:
		return "Unknown"
	}
}

// Command is a tagged variant over the shell's builtin and external
// command kinds. Only the fields relevant to Kind are populated.
type Command struct {
	Kind Kind

	// Argv holds the program name (Argv[0]) and its arguments, used by
	// External and Echo.
	Argv []string

	// Name and Value are used by Export.
	Name  string
	Value string

	// Path is used by Cd.
	Path string

	// Signal and JobID are used by Kill.
	Signal int
	JobID  int
}

// NewExternal returns a Command that runs an external program.
func NewExternal(argv []string) Command { return Command{Kind: External, Argv: argv} }

// NewEcho returns an Echo Command.
func NewEcho(argv []string) Command { return Command{Kind: Echo, Argv: argv} }

// NewExport returns an Export Command.
func NewExport(name, value string) Command { return Command{Kind: Export, Name: name, Value: value} }

// NewCd returns a Cd Command. An empty path means "bare cd" (go home).
func NewCd(path string) Command { return Command{Kind: Cd, Path: path} }

// NewKill returns a Kill Command.
func NewKill(sig, jobID int) Command { return Command{Kind: Kill, Signal: sig, JobID: jobID} }

// NewPwd returns a Pwd Command.
func NewPwd() Command { return Command{Kind: Pwd} }

// NewJobs returns a Jobs Command.
func NewJobs() Command { return Command{Kind: Jobs} }

// NewPs returns a Ps Command.
func NewPs() Command { return Command{Kind: Ps} }

// NewExit returns an Exit Command.
func NewExit() Command { return Command{Kind: Exit} }

// NewEnd returns an End sentinel Command.
func NewEnd() Command { return Command{Kind: End} }

// Flag is a bitset of per-stage pipe and background markers.
type Flag uint8

const (
	PipeIn Flag = 1 << iota
	PipeOut
	Background
)

// Stage is a Command plus its redirection metadata and pipe/background
// flags. InputFile/OutputFile are empty when no redirection applies.
type Stage struct {
	Cmd        Command
	InputFile  string
	OutputFile string
	Append     bool // true: >>, false: >
	Flags      Flag
}

// IsEnd reports whether this stage is the pipeline-terminating sentinel.
func (s Stage) IsEnd() bool { return s.Cmd.Kind == End }

// String renders the stage per the spec's rendered-command-text
// contract: space-separated argv tokens, "<file"/">file"/">>file" for
// redirections.
func (s Stage) String() string {
	var b strings.Builder
	switch s.Cmd.Kind {
	case External, Echo:
		b.WriteString(strings.Join(s.Cmd.Argv, " "))
	case Export:
		b.WriteString("export " + s.Cmd.Name + "=" + s.Cmd.Value)
	case Cd:
		b.WriteString("cd " + s.Cmd.Path)
	case Kill:
		b.WriteString(fmt.Sprintf("kill %d %d", s.Cmd.Signal, s.Cmd.JobID))
	case Pwd:
		b.WriteString("pwd")
	case Jobs:
		b.WriteString("jobs")
	case Ps:
		b.WriteString("ps")
	case Exit:
		b.WriteString("exit")
	}
	if s.InputFile != "" {
		b.WriteString(" <" + s.InputFile)
	}
	if s.OutputFile != "" {
		if s.Append {
			b.WriteString(" >>" + s.OutputFile)
		} else {
			b.WriteString(" >" + s.OutputFile)
		}
	}
	return b.String()
}

// Pipeline is a finite ordered sequence of Stages. Stages does not
// itself carry the End sentinel; callers that need the sentinel
// semantics described in the spec can rely on range iteration ending
// naturally at len(Stages).
type Pipeline struct {
	Stages []Stage
}

// Background reports whether the pipeline as a whole is backgrounded,
// a property only the first stage may carry.
func (p Pipeline) Background() bool {
	if len(p.Stages) == 0 {
		return false
	}
	return p.Stages[0].Flags&Background != 0
}

// Empty reports whether the pipeline has no stages to run.
func (p Pipeline) Empty() bool { return len(p.Stages) == 0 }

// IsBareExit reports whether this pipeline is exactly a single Exit
// command, the only position in which Exit is honored (spec.md §4.6).
func (p Pipeline) IsBareExit() bool {
	return len(p.Stages) == 1 && p.Stages[0].Cmd.Kind == Exit
}

// String renders the whole pipeline per the rendered-command-text
// contract: stages separated by "|", trailing "&" iff background.
func (p Pipeline) String() string {
	parts := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		parts[i] = s.String()
	}
	text := strings.Join(parts, " | ")
	if p.Background() {
		text += " &"
	}
	return text
}
