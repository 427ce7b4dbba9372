// Package main provides the psitest CLI application for end-to-end testing
// of psi interpreters. psitest drives interpreter subprocesses through the
// --testprompt session protocol and compares child process output against
// expected files.
package main

import (
	"os"

	"psitest/internal/cli"
)

func main() {
	app := cli.NewApp()
	rootCmd := app.CreateRootCommand()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
