package session

import "errors"

// Sentinel errors returned by Session operations. Errors returned by Run,
// Check and CheckFail wrap one of these, so callers can classify failures
// with errors.Is while the message carries the command and output involved.
var (
	// ErrSessionClosed reports an operation on a session after Close.
	ErrSessionClosed = errors.New("session is closed")

	// ErrStreamClosed reports that an output stream ended before the
	// response terminator arrived, usually because the interpreter
	// crashed or exited mid-protocol.
	ErrStreamClosed = errors.New("unexpected end of stream")

	// ErrTimeout reports a response that did not complete within the
	// configured timeout.
	ErrTimeout = errors.New("response timed out")

	// ErrUnexpectedStderr reports error output from a command that was
	// expected to succeed cleanly.
	ErrUnexpectedStderr = errors.New("interpreter reported an error")

	// ErrOutputMismatch reports normal output that differs from the
	// expected text.
	ErrOutputMismatch = errors.New("wrong interpreter output")

	// ErrCommandSucceeded reports a command that was expected to fail
	// but completed without error output.
	ErrCommandSucceeded = errors.New("interpreter did not report an error")
)
