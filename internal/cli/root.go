// Package cli provides command-line interface setup for psitest.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"psitest/internal/compare"
	"psitest/internal/config"
	"psitest/internal/logger"
)

// App represents the psitest CLI application
type App struct {
	Config *config.Config

	// Out receives command results: diffs, PASS/FAIL lines, summaries.
	// Defaults to os.Stdout; tests substitute a buffer.
	Out io.Writer

	logFile string
}

// NewApp creates a new psitest CLI application
func NewApp() *App {
	return &App{
		Config: config.NewConfig(),
		Out:    os.Stdout,
	}
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "psitest",
		Short: "Test harness for interpreter sessions and golden output",
		Long: `psitest checks interpreter behavior two ways: it drives interpreter
subprocesses through the --testprompt session protocol, and it compares child
process output against expected files, line by line.`,
		SilenceUsage: true,
	}

	// Add global flags
	rootCmd.PersistentFlags().BoolVarP(&app.Config.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&app.Config.NoColor, "no-color", false, "Disable colored diff output")
	rootCmd.PersistentFlags().IntVar(&app.Config.Timeout, "timeout", config.DefaultTimeout, "Response timeout in seconds (0 waits forever)")
	rootCmd.PersistentFlags().StringVar(&app.Config.LogLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&app.logFile, "log-file", "", "Write logs to file instead of stderr")

	// Bind flags to viper so unset flags can be filled from PSITEST_*
	// environment variables
	for _, name := range []string{"verbose", "no-color", "timeout", "log-level", "log-file"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
			os.Exit(1)
		}
	}

	// Add all subcommands
	app.addCompareCommands(rootCmd)
	app.addSuiteCommands(rootCmd)
	app.addShellCommand(rootCmd)
	app.addVersionCommand(rootCmd)

	cobra.OnInitialize(app.initConfig)

	return rootCmd
}

// initConfig finalizes the configuration once flags are parsed: .env values
// are loaded, environment variables fill in unset flags, and the logger is
// configured.
func (app *App) initConfig() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("PSITEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	app.Config.Verbose = viper.GetBool("verbose")
	app.Config.NoColor = viper.GetBool("no-color")
	app.Config.Timeout = viper.GetInt("timeout")
	app.Config.LogLevel = viper.GetString("log-level")
	app.logFile = viper.GetString("log-file")

	if err := logger.Configure(app.Config.LogLevel, app.logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// timeout converts the configured timeout seconds to a duration
func (app *App) timeout() time.Duration {
	return time.Duration(app.Config.Timeout) * time.Second
}

// newComparator builds a comparator wired to the app configuration
func (app *App) newComparator(stripANSI bool) *compare.Comparator {
	return &compare.Comparator{
		Out:       app.Out,
		Timeout:   app.timeout(),
		StripANSI: stripANSI,
		Color:     compare.ColorEnabled() && !app.Config.NoColor,
	}
}
