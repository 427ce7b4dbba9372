// Package cli provides command-line interface setup for psitest.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"psitest/internal/suite"
)

// childCommand returns the child's argv from the arguments following the
// expected file. A literal "--" there only separates the child command
// from our own arguments; it is not part of the command.
func childCommand(args []string) []string {
	if len(args) > 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}

// addCompareCommands adds the expected file commands
func (app *App) addCompareCommands(rootCmd *cobra.Command) {
	// Compare command
	var compareStrip bool
	compareCmd := &cobra.Command{
		Use:   "compare <expected-file> [--] <command> [args...]",
		Short: "Run a command and compare its output with an expected file",
		Long: `Run a child command, capture its full standard output and compare it line
by line with the expected file. A mismatch prints a unified diff and returns
exit code 1; a child that exits non-zero is reported without a diff. The
child's standard error passes through untouched.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cmp := app.newComparator(compareStrip)
			return cmp.Compare(args[0], childCommand(args[1:]))
		},
	}
	compareCmd.Flags().BoolVar(&compareStrip, "strip-ansi", false, "Strip ANSI escape sequences before comparing")
	// Flags after the child command belong to the child.
	compareCmd.Flags().SetInterspersed(false)

	// Record command
	var recordStrip bool
	recordCmd := &cobra.Command{
		Use:   "record <expected-file> [--] <command> [args...]",
		Short: "Run a command and save its output as the expected file",
		Long: `Run a child command and save its captured standard output as the expected
file for future comparisons. A failing child records nothing.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cmp := app.newComparator(recordStrip)
			if err := cmp.Record(args[0], childCommand(args[1:])); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Recorded expected output: %s\n", args[0])
			return nil
		},
	}
	recordCmd.Flags().BoolVar(&recordStrip, "strip-ansi", false, "Strip ANSI escape sequences before recording")
	recordCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(compareCmd, recordCmd)
}

// addSuiteCommands adds the manifest-driven suite commands
func (app *App) addSuiteCommands(rootCmd *cobra.Command) {
	runAllCmd := &cobra.Command{
		Use:   "run-all <manifest>",
		Short: "Run all comparison cases in a manifest",
		Long: `Run every test case listed in a YAML manifest and report the results.
Returns exit code 0 if all tests pass, non-zero if any fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			manifest, err := suite.Load(args[0])
			if err != nil {
				return err
			}
			runner := &suite.Runner{
				Comparator: app.newComparator(false),
				Out:        app.Out,
				Verbose:    app.Config.Verbose,
			}
			return runner.RunAll(manifest)
		},
	}

	rootCmd.AddCommand(runAllCmd)
}
