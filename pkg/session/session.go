// Package session drives a single interpreter subprocess through the
// line-oriented protocol spoken by interpreters started with --testprompt.
//
// Each command is written to the interpreter's stdin as one line. The
// interpreter answers every command with one response on stdout and one on
// stderr, each terminated by a NUL byte; an empty response is just the
// terminator. Both streams are drained by concurrent readers, so a response
// larger than an operating system pipe buffer on either stream cannot
// deadlock the exchange.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	// testPromptFlag puts the interpreter into the line-oriented test
	// protocol instead of its interactive prompt.
	testPromptFlag = "--testprompt"

	// recordTerminator marks the end of one response on a stream.
	recordTerminator = '\x00'
)

// Options configures how an interpreter session is started.
type Options struct {
	// Args are extra arguments passed to the interpreter after the
	// protocol flag.
	Args []string

	// Env lists additional environment variables as KEY=VALUE-style
	// pairs layered over the current process environment.
	Env map[string]string

	// Dir is the working directory for the interpreter. Empty means
	// the current directory.
	Dir string

	// Timeout bounds how long a single command may take to produce
	// both responses. Zero means wait forever, which preserves the
	// base protocol exactly. When the timeout fires the session is
	// broken and Close kills the interpreter.
	Timeout time.Duration

	// Logger receives debug traces of the protocol exchange. Nil
	// discards them.
	Logger *log.Logger
}

// stream carries NUL-terminated records parsed from one output pipe.
type stream struct {
	name string
	recs chan string
	err  error // read failure other than end of stream; set before recs closes
}

// Session is an interpreter subprocess speaking the test protocol. It is
// owned by a single goroutine; methods must not be called concurrently.
type Session struct {
	id      string
	path    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *stream
	stderr  *stream
	timeout time.Duration
	logger  *log.Logger
	readers sync.WaitGroup
	closed  bool
	broken  error // first protocol failure; later operations return it unchanged
}

// Start launches the interpreter at path with the protocol flag and any
// extra arguments, and connects to its streams. The returned session is
// ready for Run as soon as Start returns; the interpreter's first NUL
// records are not expected until the first command is sent.
func Start(path string, args ...string) (*Session, error) {
	return StartWithOptions(path, Options{Args: args})
}

// StartWithOptions is Start with full control over the environment,
// working directory, timeout and logging of the session.
func StartWithOptions(path string, opts Options) (*Session, error) {
	argv := append([]string{testPromptFlag}, opts.Args...)
	cmd := exec.Command(path, argv...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		env := os.Environ()
		for key, value := range opts.Env {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		cmd.Env = env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("connect stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("connect stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("connect stderr: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Session{
		id:      uuid.New().String(),
		path:    path,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  &stream{name: "stdout", recs: make(chan string)},
		stderr:  &stream{name: "stderr", recs: make(chan string)},
		timeout: opts.Timeout,
	}
	s.logger = logger.With("session", s.id)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch interpreter %s: %w", path, err)
	}

	s.readers.Add(2)
	go s.readRecords(stdout, s.stdout)
	go s.readRecords(stderr, s.stderr)

	s.logger.Debug("interpreter started", "path", path, "pid", cmd.Process.Pid, "args", opts.Args)
	return s, nil
}

// ID returns the unique identifier of this session, the same value used in
// its log records.
func (s *Session) ID() string {
	return s.id
}

// readRecords parses one pipe into NUL-terminated records until the stream
// ends. It blocks on delivery, never on parsing, so the interpreter can
// always make progress writing the opposite stream.
func (s *Session) readRecords(pipe io.Reader, st *stream) {
	defer s.readers.Done()
	r := bufio.NewReader(pipe)
	for {
		rec, err := r.ReadString(recordTerminator)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				st.err = err
			}
			close(st.recs)
			return
		}
		st.recs <- rec[:len(rec)-1]
	}
}

// Run sends one command line to the interpreter and waits for its paired
// responses. It returns the normal output and the error output, both with
// their NUL terminators removed. A failure to complete the exchange breaks
// the session; every later Run returns the same error.
func (s *Session) Run(command string) (string, string, error) {
	if s.closed {
		return "", "", ErrSessionClosed
	}
	if s.broken != nil {
		return "", "", s.broken
	}
	if strings.ContainsAny(command, "\r\n") {
		return "", "", fmt.Errorf("command %q must be a single line", command)
	}

	s.logger.Debug("sending command", "command", command)
	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		s.broken = fmt.Errorf("send command: %w", err)
		return "", "", s.broken
	}

	// One timer spans both responses; a command is answered on both
	// streams or not at all.
	var deadline <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	out, err := s.receive(s.stdout, deadline)
	if err != nil {
		s.broken = err
		return "", "", err
	}
	errOut, err := s.receive(s.stderr, deadline)
	if err != nil {
		s.broken = err
		return "", "", err
	}

	s.logger.Debug("response complete", "stdout_bytes", len(out), "stderr_bytes", len(errOut))
	return out, errOut, nil
}

// receive waits for the next record on one stream. A nil deadline channel
// blocks forever.
func (s *Session) receive(st *stream, deadline <-chan time.Time) (string, error) {
	select {
	case rec, ok := <-st.recs:
		if !ok {
			if st.err != nil {
				return "", fmt.Errorf("read %s: %w", st.name, st.err)
			}
			return "", fmt.Errorf("%s ended before the response terminator: %w", st.name, ErrStreamClosed)
		}
		return rec, nil
	case <-deadline:
		return "", fmt.Errorf("no %s response within %s: %w", st.name, s.timeout, ErrTimeout)
	}
}

// Check runs a command that must succeed. The interpreter must answer with
// exactly expected on stdout and nothing on stderr; anything else is
// reported as an error carrying the offending output.
func (s *Session) Check(command, expected string) error {
	out, errOut, err := s.Run(command)
	if err != nil {
		return err
	}
	if errOut != "" {
		return fmt.Errorf("%w: command %q: %s", ErrUnexpectedStderr, command, errOut)
	}
	if out != expected {
		return fmt.Errorf("%w: command %q: got %q, want %q", ErrOutputMismatch, command, out, expected)
	}
	return nil
}

// CheckFail runs a command that must fail. It returns the interpreter's
// error output for further inspection. A command that produces no error
// output is itself a failure, reported with the normal output it printed
// instead.
func (s *Session) CheckFail(command string) (string, error) {
	out, errOut, err := s.Run(command)
	if err != nil {
		return "", err
	}
	if errOut == "" {
		return "", fmt.Errorf("%w: command %q printed %q", ErrCommandSucceeded, command, out)
	}
	return errOut, nil
}

// Close shuts the session down and releases the interpreter process. On a
// healthy session it closes stdin so the interpreter sees end of input and
// exits on its own; a broken session's interpreter is killed instead. Close
// is idempotent and safe on every session state. The interpreter's own exit
// status is not the session's concern and is not reported.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("closing session")

	if s.broken != nil && s.cmd.Process != nil {
		// The interpreter may be stuck mid-protocol; don't wait for
		// it to notice stdin closing.
		_ = s.cmd.Process.Kill()
	}
	_ = s.stdin.Close()

	// Unblock the readers in case the interpreter wrote records nobody
	// consumed, then let them run to end of stream before the process
	// is reaped.
	go drain(s.stdout.recs)
	go drain(s.stderr.recs)

	done := make(chan error, 1)
	go func() {
		s.readers.Wait()
		done <- s.cmd.Wait()
	}()

	var err error
	if s.timeout > 0 {
		select {
		case err = <-done:
		case <-time.After(s.timeout):
			_ = s.cmd.Process.Kill()
			err = <-done
		}
	} else {
		err = <-done
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("wait for interpreter: %w", err)
	}
	return nil
}

func drain(ch <-chan string) {
	for range ch {
	}
}
