// Package completer provides filesystem- and job-aware tab completion
// for the quash shell. It dynamically builds completion suggestions for
// common shell commands based on the current directory contents and the
// shell's own background job table.
package completer

import (
	"os"
	"strconv"

	"github.com/chzyer/readline"

	"quash/internal/job"
)

// Completer adapts quash's dynamic environment (filesystem and jobs)
// to the readline.AutoCompleter interface. It generates and updates
// command-specific completion suggestions on each loop iteration.
type Completer struct {
	jobs              *job.Table
	readlineCompleter *readline.PrefixCompleter
}

// New returns a Completer that sources job ids from jobs.
func New(jobs *job.Table) *Completer {
	return &Completer{jobs: jobs, readlineCompleter: readline.NewPrefixCompleter()}
}

// Update rebuilds the completion tree based on the current working
// directory and the live job table. It scans files and directories and
// lists background job ids to provide up-to-date suggestions for
// commands like "cd", "ls", "kill", "jobs", "rm", "cat", and others.
func (c *Completer) Update() {

	entries, err := os.ReadDir(".")
	if err != nil {
		return
	}

	var onlyDirs []readline.PrefixCompleterInterface
	var jobIDs []readline.PrefixCompleterInterface
	var rmCompleter []readline.PrefixCompleterInterface
	var fileNamesToComplete []readline.PrefixCompleterInterface

	for _, entry := range entries {
		if entry.IsDir() {
			fileNamesToComplete = append(fileNamesToComplete, readline.PcItem(entry.Name()+"/"))
			onlyDirs = append(onlyDirs, readline.PcItem(entry.Name()+"/"))
		} else {
			fileNamesToComplete = append(fileNamesToComplete, readline.PcItem(entry.Name()))
		}
	}

	for _, j := range c.jobs.List() {
		jobIDs = append(jobIDs, readline.PcItem(strconv.Itoa(j.ID)))
	}

	var pids []readline.PrefixCompleterInterface
	for _, pid := range procPIDs() {
		pids = append(pids, readline.PcItem(pid))
	}

	rmCompleter = append(rmCompleter, fileNamesToComplete...)
	rmCompleter = append(rmCompleter, readline.PcItem("-rf", fileNamesToComplete...))

	newCompleter := readline.NewPrefixCompleter(
		readline.PcItem("cd", onlyDirs...),
		readline.PcItem("rm", rmCompleter...),
		readline.PcItem("kill", readline.PcItem("TERM", jobIDs...), readline.PcItem("KILL", jobIDs...)),
		readline.PcItem("jobs", jobIDs...),
		readline.PcItem("ps", pids...),
		readline.PcItem("ls", fileNamesToComplete...),
		readline.PcItem("cat", fileNamesToComplete...),
		readline.PcItem("cut", fileNamesToComplete...),
		readline.PcItem("vim", fileNamesToComplete...),
		readline.PcItem("grep", fileNamesToComplete...),
		readline.PcItem("echo", fileNamesToComplete...),
	)

	c.readlineCompleter = newCompleter

}

// Do delegates the completion logic to the underlying PrefixCompleter.
// It satisfies the readline.AutoCompleter interface.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	return c.readlineCompleter.Do(line, pos)
}

// procPIDs reads /proc to list currently running process ids, kept
// from the teacher's internal/completer.getPIDs for the "ps" builtin's
// own completions.
func procPIDs() []string {
	proc, _ := os.ReadDir("/proc")
	var pids []string
	for _, entry := range proc {
		if entry.IsDir() {
			if _, err := strconv.Atoi(entry.Name()); err == nil {
				pids = append(pids, entry.Name())
			}
		}
	}
	return pids
}
