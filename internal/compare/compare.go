// Package compare runs a child process and checks its standard output
// against an expected file, line by line. Mismatches are reported as a
// unified diff; the child's standard error is passed through untouched.
package compare

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/x/ansi"

	"psitest/internal/logger"
)

// Sentinel errors for the two ways a comparison can fail. Both map to a
// non-zero exit of the compare command.
var (
	// ErrMismatch reports child output that differs from the expected
	// file. The diff has already been printed when this is returned.
	ErrMismatch = errors.New("output does not match expected")

	// ErrChildFailed reports a child process that exited non-zero. No
	// diff is produced in that case; the output is not trustworthy.
	ErrChildFailed = errors.New("child process failed")
)

const defaultContextLines = 3

// Comparator captures a child process's standard output and compares it
// with an expected file. The zero value compares against os.Stdout and
// os.Stderr with no timeout.
type Comparator struct {
	// Out receives the diff and diagnostics. Defaults to os.Stdout.
	Out io.Writer

	// ChildStderr is where the child's standard error goes, unbuffered
	// and uncompared. Defaults to os.Stderr.
	ChildStderr io.Writer

	// Dir is the child's working directory. Empty means the current
	// directory.
	Dir string

	// Timeout bounds the child's total run time. Zero means no limit;
	// when it fires the child is killed and the comparison fails.
	Timeout time.Duration

	// StripANSI removes ANSI escape sequences from the captured output
	// and the expected file before comparing.
	StripANSI bool

	// Color renders the diff with added and removed lines styled.
	Color bool

	// Context is the number of unchanged lines shown around each hunk.
	// Zero or negative means the default of three.
	Context int
}

// Compare runs the child command, captures its full standard output and
// compares it with the contents of the expected file. On a mismatch the
// diff is written to Out and ErrMismatch is returned; a child that exits
// non-zero is reported with ErrChildFailed and no diff.
func (c *Comparator) Compare(expectedPath string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("no child command given")
	}

	expectedRaw, err := os.ReadFile(expectedPath)
	if err != nil {
		return fmt.Errorf("read expected file: %w", err)
	}

	output, err := c.runChild(argv)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(c.out(), "child process failed with exit code %d\n", exitErr.ExitCode())
			return fmt.Errorf("%w with exit code %d", ErrChildFailed, exitErr.ExitCode())
		}
		return err
	}

	expected := c.normalize(string(expectedRaw))
	actual := c.normalize(output)

	hunks := diffLines(expected, actual, c.contextLines())
	if len(hunks) == 0 {
		return nil
	}
	c.printDiff(hunks)
	return fmt.Errorf("%w: %s", ErrMismatch, expectedPath)
}

// Record runs the child command and saves its captured standard output as
// the new expected file. A failing child records nothing.
func (c *Comparator) Record(expectedPath string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("no child command given")
	}

	output, err := c.runChild(argv)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w with exit code %d", ErrChildFailed, exitErr.ExitCode())
		}
		return err
	}

	if err := os.WriteFile(expectedPath, []byte(c.normalize(output)), 0644); err != nil {
		return fmt.Errorf("write expected file: %w", err)
	}
	return nil
}

// runChild executes argv with stdout captured whole and stderr passed
// through. It returns the raw captured output; a non-zero exit comes back
// as the unwrapped *exec.ExitError for the caller to classify.
func (c *Comparator) runChild(argv []string) (string, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stderr = c.childStderr()

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	logger.Debug("Starting child process", "command", argv[0], "args", argv[1:])
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start child process: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	if c.Timeout > 0 {
		select {
		case err = <-done:
		case <-time.After(c.Timeout):
			logger.Warn("Killing child process", "command", argv[0], "timeout", c.Timeout)
			_ = cmd.Process.Kill()
			<-done
			return "", fmt.Errorf("child process timed out after %s", c.Timeout)
		}
	} else {
		err = <-done
	}

	return stdout.String(), err
}

// normalize prepares text for line comparison: optional ANSI stripping,
// then universal newline translation so CRLF and bare CR output compares
// equal to LF expected files.
func (c *Comparator) normalize(text string) string {
	if c.StripANSI {
		text = ansi.Strip(text)
	}
	return normalizeNewlines(text)
}

func (c *Comparator) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *Comparator) childStderr() io.Writer {
	if c.ChildStderr != nil {
		return c.ChildStderr
	}
	return os.Stderr
}

func (c *Comparator) contextLines() int {
	if c.Context > 0 {
		return c.Context
	}
	return defaultContextLines
}
