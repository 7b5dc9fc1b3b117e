// Package main is the entry point of the quash shell application.
// It simply calls shell.Run() to start the interactive shell.
package main

import "quash/internal/shell"

// main starts the quash interactive shell.
func main() {
	shell.Run()
}
