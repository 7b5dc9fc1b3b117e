// Package diag centralizes the shell's one-line stderr diagnostics, in
// the same fmt.Fprintln(os.Stderr, err)-to-stderr register the teacher
// uses throughout its builtin and shell packages.
package diag

import (
	"fmt"
	"io"
	"os"
)

// Writer is where diagnostics go; swappable so tests can capture it.
var Writer io.Writer = os.Stderr

// Print writes err to the diagnostic writer if err is non-nil.
func Print(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(Writer, err)
}

// Errorf formats and writes a diagnostic line directly, for cases with
// no underlying error value.
func Errorf(format string, args ...any) {
	fmt.Fprintf(Writer, format+"\n", args...)
}
