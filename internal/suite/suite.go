// Package suite loads a YAML manifest of comparison cases and runs them
// through the comparator, reporting results in the style of a test runner.
package suite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"psitest/internal/compare"
	"psitest/internal/logger"
)

// Case is one comparison: a child command and the expected file its
// standard output must match.
type Case struct {
	Name     string   `yaml:"name"`
	Expected string   `yaml:"expected"`
	Command  []string `yaml:"command"`
}

// Manifest is a list of cases loaded from a YAML file. Relative expected
// files and relative command paths resolve against the manifest's
// directory, and every child runs with that directory as its working
// directory.
type Manifest struct {
	Tests []Case `yaml:"tests"`

	// Dir is the absolute directory of the manifest file, set by Load.
	Dir string `yaml:"-"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Tests) == 0 {
		return nil, fmt.Errorf("manifest %s lists no tests", path)
	}

	seen := make(map[string]bool, len(m.Tests))
	for i, c := range m.Tests {
		if c.Name == "" {
			return nil, fmt.Errorf("manifest %s: test %d has no name", path, i+1)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("manifest %s: duplicate test name %q", path, c.Name)
		}
		seen[c.Name] = true
		if c.Expected == "" {
			return nil, fmt.Errorf("manifest %s: test %q has no expected file", path, c.Name)
		}
		if len(c.Command) == 0 {
			return nil, fmt.Errorf("manifest %s: test %q has no command", path, c.Name)
		}
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest directory: %w", err)
	}
	m.Dir = dir
	return &m, nil
}

// Runner executes every case in a manifest through a comparator template.
type Runner struct {
	// Comparator supplies the comparison settings. Its Dir is replaced
	// by each manifest's directory.
	Comparator *compare.Comparator

	// Out receives the PASS/FAIL lines and the summary. Defaults to
	// os.Stdout.
	Out io.Writer

	// Verbose announces each case before it runs.
	Verbose bool
}

// RunAll runs every case in order, printing one PASS or FAIL line per case
// and a final summary. It returns an error naming the failed cases when
// any case fails.
func (r *Runner) RunAll(m *Manifest) error {
	var failed []string
	passed := 0

	for _, tc := range m.Tests {
		if r.Verbose {
			fmt.Fprintf(r.out(), "Running test: %s\n", tc.Name)
		}
		logger.Debug("Running test case", "name", tc.Name)
		if err := r.runCase(m, tc); err != nil {
			failed = append(failed, tc.Name)
			fmt.Fprintf(r.out(), "FAIL %s: %v\n", tc.Name, err)
		} else {
			passed++
			fmt.Fprintf(r.out(), "PASS %s\n", tc.Name)
		}
	}

	logger.Debug("Suite finished", "passed", passed, "failed", len(failed))
	fmt.Fprintf(r.out(), "\nResults: %d passed, %d failed\n", passed, len(failed))

	if len(failed) > 0 {
		return fmt.Errorf("tests failed: %v", failed)
	}
	return nil
}

// runCase compares one case with its paths resolved against the manifest.
func (r *Runner) runCase(m *Manifest, tc Case) error {
	cmp := *r.Comparator
	cmp.Dir = m.Dir
	if cmp.Out == nil {
		cmp.Out = r.out()
	}

	expected := tc.Expected
	if !filepath.IsAbs(expected) {
		expected = filepath.Join(m.Dir, expected)
	}

	// exec resolves a relative command path against our own working
	// directory, not the child's, so manifest-relative paths need the
	// manifest directory prepended here.
	command := append([]string(nil), tc.Command...)
	if strings.Contains(command[0], string(os.PathSeparator)) && !filepath.IsAbs(command[0]) {
		command[0] = filepath.Join(m.Dir, command[0])
	}

	return cmp.Compare(expected, command)
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}
