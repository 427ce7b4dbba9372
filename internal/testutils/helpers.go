// Package testutils provides shared helpers for psitest's own tests, most
// of which exercise real subprocesses by re-executing the test binary.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// HelperArgs builds an argv that re-executes the current test binary and
// runs only the named helper test. Arguments after the -- separator reach
// the helper through os.Args; the helper itself must be gated on an
// environment variable so it stays inert during normal test runs.
func HelperArgs(helperTest string, args ...string) []string {
	argv := []string{os.Args[0], "-test.run=^" + helperTest + "$", "--"}
	return append(argv, args...)
}

// ArgsAfterSeparator returns the os.Args tail following the first --, as
// seen by a helper test process started with HelperArgs.
func ArgsAfterSeparator() []string {
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		return args[1:]
	}
	return nil
}
