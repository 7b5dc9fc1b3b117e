// Package job implements the background job table: registering a
// backgrounded pipeline, non-blocking polling to reap finished
// children, signalling a job's processes, and listing live jobs.
//
// The table is process-wide state made explicit (spec.md §9: "Global
// mutable state ... recast as an explicit engine handle"), so tests can
// run several independent shells side by side. It is accessed from a
// single goroutine only (spec.md §5), so it carries no locks.
package job

import (
	"fmt"
	"io"
	"syscall"
)

// Job tracks one backgrounded pipeline: the monotonically-assigned id,
// the rendered command text shown in notices, the set of process ids
// still outstanding, and the original leader pid (kept even after the
// leader itself has been reaped).
type Job struct {
	ID      int
	Command string
	PIDs    []int
	Leader  int
}

// Table is the JobTable: an insertion-ordered sequence of Jobs with a
// monotonically increasing, never-reused id counter.
type Table struct {
	out     io.Writer
	jobs    []Job
	nextID  int
	verbose bool
}

// NewTable returns a Table that writes job notices to w.
func NewTable(w io.Writer) *Table {
	return &Table{out: w, nextID: 1}
}

// SetVerboseKill controls whether Signal reports an unknown job id to
// out instead of silently no-op'ing, per the engine.jobs_verbose_kill
// config flag.
func (t *Table) SetVerboseKill(verbose bool) {
	t.verbose = verbose
}

// Register records a newly-backgrounded pipeline, assigns it the next
// job id, prints a "Background job started" notice, and returns the
// id. pids must be non-empty; pids[0] becomes the job's leader.
func (t *Table) Register(pids []int, commandText string) int {
	id := t.nextID
	t.nextID++

	j := Job{
		ID:      id,
		Command: commandText,
		PIDs:    append([]int(nil), pids...),
		Leader:  pids[0],
	}
	t.jobs = append(t.jobs, j)

	fmt.Fprint(t.out, "Background job started: ")
	printJob(t.out, j)

	return id
}

// Poll non-blockingly reaps every outstanding pid of every tracked
// job. A job whose pid set becomes empty is dropped and a completion
// notice is printed; jobs with processes still running are retained.
// Poll never blocks and must be called exactly once per pipeline,
// before that pipeline's own children are launched (spec.md §4.5).
func (t *Table) Poll() {
	remaining := t.jobs[:0:0]

	for _, j := range t.jobs {
		var stillRunning []int
		for _, pid := range j.PIDs {
			if processAlive(pid) {
				stillRunning = append(stillRunning, pid)
			}
		}
		j.PIDs = stillRunning

		if len(j.PIDs) == 0 {
			fmt.Fprint(t.out, "Completed: \t")
			printJob(t.out, j)
		} else {
			remaining = append(remaining, j)
		}
	}

	t.jobs = remaining
}

// processAlive performs a single non-blocking waitpid(pid, WNOHANG).
// It returns false (the pid is gone) both when the process has been
// reaped and when the kernel no longer knows about it at all (ECHILD):
// in either case there is nothing left for this job to wait for.
func processAlive(pid int) bool {
	var status syscall.WaitStatus
	reaped, err := syscall.Wait4(pid, &status, syscall.WNOHANG, nil)
	if err != nil {
		return false
	}
	return reaped == 0
}

// Signal delivers sig to every pid still tracked by job id. Signalling
// an unknown job id is a silent no-op by default (spec.md §9 Open
// Question); when SetVerboseKill(true) has been called, a diagnostic
// is printed to out instead.
func (t *Table) Signal(id int, sig syscall.Signal) {
	for _, j := range t.jobs {
		if j.ID != id {
			continue
		}
		for _, pid := range j.PIDs {
			_ = syscall.Kill(pid, sig)
		}
		return
	}
	if t.verbose {
		fmt.Fprintf(t.out, "kill: %d: no such job\n", id)
	}
}

// List returns a snapshot of all live jobs, ordered by insertion.
func (t *Table) List() []Job {
	out := make([]Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

func printJob(w io.Writer, j Job) {
	fmt.Fprintf(w, "[%d]\t%8d\t%s\n", j.ID, j.Leader, j.Command)
}
