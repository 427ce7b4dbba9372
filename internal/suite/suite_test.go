package suite

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"psitest/internal/compare"
	"psitest/internal/testutils"
)

const childEnvVar = "PSITEST_SUITE_CHILD"

// TestSuiteChild is not a real test. It plays the child process behind the
// manifest cases.
func TestSuiteChild(t *testing.T) {
	if os.Getenv(childEnvVar) != "1" {
		return
	}
	args := testutils.ArgsAfterSeparator()
	if len(args) > 0 && args[0] == "print" {
		for _, line := range args[1:] {
			fmt.Println(line)
		}
		os.Exit(0)
	}
	os.Exit(2)
}

func childArgs(args ...string) []string {
	return testutils.HelperArgs("TestSuiteChild", append([]string{"print"}, args...)...)
}

func writeManifest(t *testing.T, dir string, m *Manifest) string {
	t.Helper()
	data, err := yaml.Marshal(m)
	require.NoError(t, err)
	return testutils.WriteFile(t, dir, "manifest.yaml", string(data))
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{"no tests", "tests: []\n", "lists no tests"},
		{"missing name", "tests:\n  - expected: a.expected\n    command: [echo]\n", "has no name"},
		{"missing expected", "tests:\n  - name: a\n    command: [echo]\n", "has no expected file"},
		{"missing command", "tests:\n  - name: a\n    expected: a.expected\n", "has no command"},
		{"duplicate name", "tests:\n  - name: a\n    expected: a.expected\n    command: [echo]\n  - name: a\n    expected: b.expected\n    command: [echo]\n", "duplicate test name"},
		{"malformed yaml", "tests: [unclosed\n", "parse manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutils.WriteFile(t, t.TempDir(), "manifest.yaml", tt.manifest)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestLoadResolvesManifestDir(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, &Manifest{Tests: []Case{
		{Name: "a", Expected: "a.expected", Command: []string{"echo"}},
	}})

	m, err := Load(path)
	require.NoError(t, err)
	want, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, want, m.Dir)
	require.Len(t, m.Tests, 1)
	assert.Equal(t, "a", m.Tests[0].Name)
}

func TestRunAllReportsResults(t *testing.T) {
	t.Setenv(childEnvVar, "1")
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "ok.expected", "alpha\n")
	testutils.WriteFile(t, dir, "bad.expected", "beta\n")
	path := writeManifest(t, dir, &Manifest{Tests: []Case{
		{Name: "ok", Expected: "ok.expected", Command: childArgs("alpha")},
		{Name: "bad", Expected: "bad.expected", Command: childArgs("NOT-BETA")},
	}})

	m, err := Load(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	r := &Runner{Comparator: &compare.Comparator{Out: &buf}, Out: &buf}
	err = r.RunAll(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	out := buf.String()
	assert.Contains(t, out, "PASS ok\n")
	assert.Contains(t, out, "FAIL bad:")
	assert.Contains(t, out, "\nResults: 1 passed, 1 failed\n")
	// The failing case's diff lands on the same writer.
	assert.Contains(t, out, "-beta")
	assert.Contains(t, out, "+NOT-BETA")
}

func TestRunAllPassingSuite(t *testing.T) {
	t.Setenv(childEnvVar, "1")
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "ok.expected", "alpha\n")
	path := writeManifest(t, dir, &Manifest{Tests: []Case{
		{Name: "ok", Expected: "ok.expected", Command: childArgs("alpha")},
	}})

	m, err := Load(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	r := &Runner{Comparator: &compare.Comparator{Out: &buf}, Out: &buf, Verbose: true}
	require.NoError(t, r.RunAll(m))

	out := buf.String()
	assert.Contains(t, out, "Running test: ok\n")
	assert.Contains(t, out, "PASS ok\n")
	assert.Contains(t, out, "\nResults: 1 passed, 0 failed\n")
}

func TestRunAllResolvesRelativeCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "runme")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho alpha\n"), 0755))
	testutils.WriteFile(t, dir, "ok.expected", "alpha\n")
	path := writeManifest(t, dir, &Manifest{Tests: []Case{
		{Name: "ok", Expected: "ok.expected", Command: []string{"./runme"}},
	}})

	m, err := Load(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	r := &Runner{Comparator: &compare.Comparator{Out: &buf}, Out: &buf}
	require.NoError(t, r.RunAll(m))
	assert.Contains(t, buf.String(), "PASS ok\n")
}
