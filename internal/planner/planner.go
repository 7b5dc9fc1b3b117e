// Package planner classifies a pipeline's stages as parent-only
// builtins, child-capable builtins, external programs, or sentinels,
// per spec.md §4.2. The classification drives both the launcher (where
// a stage's work happens) and the builtin dispatcher (which of its two
// entry points applies).
package planner

import "quash/internal/command"

// Class is the result of classifying a Command's Kind.
type Class int

const (
	// ParentOnly builtins mutate shell state and must never run in a
	// child: Export, Cd, Kill.
	ParentOnly Class = iota
	// ChildCapable builtins only produce output and are dispatched with
	// their output directed at the stage's writer: Echo, Pwd, Jobs, Ps.
	ChildCapable
	// ExternalProgram is resolved via the environment facade and run in
	// a forked child.
	ExternalProgram
	// Sentinel marks Exit/End, which the engine handles before ever
	// reaching the launcher.
	Sentinel
)

func (c Class) String() string {
	switch c {
	case ParentOnly:
		return "ParentOnly"
	case ChildCapable:
		return "ChildCapable"
	case ExternalProgram:
		return "ExternalProgram"
	case Sentinel:
		return "Sentinel"
	default:
		return "Unknown"
	}
}

// Classify returns the Class for a Command Kind.
func Classify(kind command.Kind) Class {
	switch kind {
	case command.Export, command.Cd, command.Kill:
		return ParentOnly
	case command.Echo, command.Pwd, command.Jobs, command.Ps:
		return ChildCapable
	case command.External:
		return ExternalProgram
	default: // Exit, End
		return Sentinel
	}
}

// RunsInChild reports whether this Kind's work happens in a forked
// child process or process-equivalent (ChildCapable builtins are
// dispatched with output redirected exactly as a child's would be, per
// spec.md §9's single "runs_in_child" capability bit).
func RunsInChild(kind command.Kind) bool {
	switch Classify(kind) {
	case ChildCapable, ExternalProgram:
		return true
	default:
		return false
	}
}
