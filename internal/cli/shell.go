// Package cli provides command-line interface setup for psitest.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abiosoft/ishell/v2"
	"github.com/spf13/cobra"

	"psitest/internal/logger"
	"psitest/pkg/session"
)

// addShellCommand adds the interactive session shell
func (app *App) addShellCommand(rootCmd *cobra.Command) {
	shellCmd := &cobra.Command{
		Use:   "shell <interpreter> [args...]",
		Short: "Drive an interpreter session interactively",
		Long: `Start an interpreter under the session protocol and forward each input line
to it as one command, printing both response streams as they arrive. Useful
for exploring interpreter behavior before scripting checks against it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.runShell(args[0], args[1:])
		},
	}
	shellCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(shellCmd)
}

// runShell owns one session for the whole interactive loop. The session
// breaking for any reason ends the loop; the interpreter's ordinary error
// responses do not.
func (app *App) runShell(path string, extraArgs []string) error {
	sess, err := session.StartWithOptions(path, session.Options{
		Args:    extraArgs,
		Timeout: app.timeout(),
		Logger:  logger.NewStyledLogger("Session"),
	})
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	logger.Info("Starting interpreter session", "interpreter", path, "session", sess.ID())

	sh := ishell.New()
	sh.SetPrompt(filepath.Base(path) + "> ")

	sh.Println(fmt.Sprintf("psitest session shell driving %s", path))
	sh.Println("Type 'exit' to quit.")

	sh.NotFound(func(c *ishell.Context) {
		command := strings.Join(c.RawArgs, " ")
		out, errOut, err := sess.Run(command)
		if err != nil {
			logger.Error("Session failed", "error", err)
			c.Printf("session error: %s\n", err)
			sh.Stop()
			return
		}
		c.Print(out)
		if errOut != "" {
			c.Printf("error: %s", errOut)
			if !strings.HasSuffix(errOut, "\n") {
				c.Println()
			}
		}
	})

	sh.Run()

	return sess.Close()
}
