// Package prompt provides a small utility to build the interactive shell
// prompt string. It renders the current working directory (using ~ for the
// user's home directory) with ANSI color escapes from a painter.Painter.
package prompt

import (
	"os"
	"strings"

	"quash/internal/painter"
)

// DefaultPrompt is returned when the working directory cannot be
// determined.
const DefaultPrompt = "$ "

// Update returns the prompt string to be displayed to the user. The
// prompt shows the current working directory (with the home directory
// abbreviated as `~` when applicable) styled with p. If the working
// directory cannot be determined, DefaultPrompt is returned.
func Update(p painter.Painter) string {

	currPath, err := os.Getwd()
	if err != nil {
		return DefaultPrompt
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	promptPath := currPath
	if homeDir != "" && strings.HasPrefix(currPath, homeDir) {
		promptPath = "~" + strings.TrimPrefix(currPath, homeDir)
	}

	return p.Paint(p.PathBold, p.PathColour, promptPath) + " $ "

}
