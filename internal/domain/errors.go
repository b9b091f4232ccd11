package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrConfigNotFound     = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrConfigWrite        = errors.New("writing configuration failed")
	ErrInvalidParams      = errors.New("invalid connection parameters")
	ErrInvalidPattern     = errors.New("invalid filter pattern")
	ErrAlreadyRunning     = errors.New("tunnel client already running")
	ErrNotRunning         = errors.New("tunnel client not running")
	ErrExecutableNotFound = errors.New("tunnel client executable not found")
	ErrStartTimeout       = errors.New("tunnel client did not start in time")
	ErrStartFailed        = errors.New("tunnel client failed to start")
	ErrProcessCrashed     = errors.New("tunnel client crashed")
	ErrProcessRead        = errors.New("reading from tunnel client failed")
	ErrProcessWrite       = errors.New("writing to tunnel client failed")
	ErrUnknownProcess     = errors.New("unknown tunnel client error")
)

// Error codes for API responses
const (
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeConfigWrite        = "CONFIG_WRITE_FAILED"
	ErrCodeInvalidParams      = "INVALID_PARAMS"
	ErrCodeInvalidPattern     = "INVALID_PATTERN"
	ErrCodeAlreadyRunning     = "ALREADY_RUNNING"
	ErrCodeNotRunning         = "NOT_RUNNING"
	ErrCodeExecutableNotFound = "EXECUTABLE_NOT_FOUND"
	ErrCodeStartTimeout       = "START_TIMEOUT"
	ErrCodeStartFailed        = "START_FAILED"
	ErrCodeProcessCrashed     = "PROCESS_CRASHED"
	ErrCodeProcessRead        = "PROCESS_READ_ERROR"
	ErrCodeProcessWrite       = "PROCESS_WRITE_ERROR"

	// API-only, no sentinel error
	ErrCodeStreamingNotSupported = "STREAMING_NOT_SUPPORTED"
)

// ErrorCode returns the API error code for a domain error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ErrCodeInvalidConfig
	case errors.Is(err, ErrConfigWrite):
		return ErrCodeConfigWrite
	case errors.Is(err, ErrInvalidParams):
		return ErrCodeInvalidParams
	case errors.Is(err, ErrInvalidPattern):
		return ErrCodeInvalidPattern
	case errors.Is(err, ErrAlreadyRunning):
		return ErrCodeAlreadyRunning
	case errors.Is(err, ErrNotRunning):
		return ErrCodeNotRunning
	case errors.Is(err, ErrExecutableNotFound):
		return ErrCodeExecutableNotFound
	case errors.Is(err, ErrStartTimeout):
		return ErrCodeStartTimeout
	case errors.Is(err, ErrStartFailed):
		return ErrCodeStartFailed
	case errors.Is(err, ErrProcessCrashed):
		return ErrCodeProcessCrashed
	case errors.Is(err, ErrProcessRead):
		return ErrCodeProcessRead
	case errors.Is(err, ErrProcessWrite):
		return ErrCodeProcessWrite
	default:
		return "INTERNAL_ERROR"
	}
}

// ProcessErrorKind classifies failures reported by the supervised client.
// None of them are fatal to the host.
type ProcessErrorKind int

const (
	ProcessErrorUnknown ProcessErrorKind = iota
	ProcessErrorFailedToStart
	ProcessErrorCrashed
	ProcessErrorTimedOut
	ProcessErrorWrite
	ProcessErrorRead
)

// String returns a short name for the kind
func (k ProcessErrorKind) String() string {
	switch k {
	case ProcessErrorFailedToStart:
		return "failed_to_start"
	case ProcessErrorCrashed:
		return "crashed"
	case ProcessErrorTimedOut:
		return "timed_out"
	case ProcessErrorWrite:
		return "write_error"
	case ProcessErrorRead:
		return "read_error"
	default:
		return "unknown_error"
	}
}

// Message returns the human-readable message shown to the user for this kind.
func (k ProcessErrorKind) Message() string {
	switch k {
	case ProcessErrorFailedToStart:
		return "failed to start: the client executable may be missing or not permitted to run"
	case ProcessErrorCrashed:
		return "the client process crashed"
	case ProcessErrorTimedOut:
		return "the client process timed out"
	case ProcessErrorWrite:
		return "write error: could not send data to the client process"
	case ProcessErrorRead:
		return "read error: could not read data from the client process"
	default:
		return "unknown error"
	}
}

// sentinel returns the domain error matching the kind
func (k ProcessErrorKind) sentinel() error {
	switch k {
	case ProcessErrorFailedToStart:
		return ErrStartFailed
	case ProcessErrorCrashed:
		return ErrProcessCrashed
	case ProcessErrorTimedOut:
		return ErrStartTimeout
	case ProcessErrorWrite:
		return ErrProcessWrite
	case ProcessErrorRead:
		return ErrProcessRead
	default:
		return ErrUnknownProcess
	}
}

// ProcessError is a classified client failure. It matches its kind's sentinel
// with errors.Is and unwraps to the underlying cause.
type ProcessError struct {
	Kind ProcessErrorKind
	Err  error
}

// NewProcessError creates a ProcessError of the given kind
func NewProcessError(kind ProcessErrorKind, err error) *ProcessError {
	return &ProcessError{Kind: kind, Err: err}
}

func (e *ProcessError) Error() string {
	if e.Err == nil {
		return e.Kind.Message()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Message(), e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *ProcessError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
