package backend

import (
	"errors"
	"fmt"
)

// Storage errors
var (
	ErrNotFound    = errors.New("task not found")
	ErrInvalidPath = errors.New("invalid cache destination")
	ErrUnparsable  = errors.New("cache data is not a list of task records")
	ErrEmptyText   = errors.New("task text is empty")
)

// Protocol errors
var (
	ErrStaleRevision  = errors.New("stale revision")
	ErrDecodingFailed = errors.New("response decoding failed")
	ErrTransport      = errors.New("transport failure")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrServerError    = errors.New("server error")
	ErrRejected       = errors.New("request rejected")
)

// StoreError describes a failed Local Cache operation
type StoreError struct {
	Op          string // e.g. "Load", "Save", "Delete"
	Destination string // Optional: cache destination
	TaskUID     string // Optional: affected task id
	Err         error  // Classification sentinel (ErrNotFound, ErrInvalidPath, ErrUnparsable)
	Cause       error  // Optional: underlying OS or driver error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Destination != "" {
		msg += fmt.Sprintf(" for %q", e.Destination)
	}
	if e.TaskUID != "" {
		msg += fmt.Sprintf(" (task %s)", e.TaskUID)
	}
	msg += ": " + e.Err.Error()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the classification and the cause to errors.Is/As
func (e *StoreError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// ErrorKind classifies failures at the remote boundary
type ErrorKind int

const (
	KindRejected ErrorKind = iota
	KindStaleRevision
	KindDecodingFailed
	KindTransport
	KindUnauthorized
	KindServerError
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindStaleRevision:
		return "stale revision"
	case KindDecodingFailed:
		return "decoding failed"
	case KindTransport:
		return "transport failure"
	case KindUnauthorized:
		return "unauthorized"
	case KindServerError:
		return "server error"
	case KindNotFound:
		return "not found"
	default:
		return "rejected"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindStaleRevision:
		return ErrStaleRevision
	case KindDecodingFailed:
		return ErrDecodingFailed
	case KindTransport:
		return ErrTransport
	case KindUnauthorized:
		return ErrUnauthorized
	case KindServerError:
		return ErrServerError
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrRejected
	}
}

// KindForStatus maps an HTTP status code of the list service to an ErrorKind.
// The service answers 400 when the presented revision is out of date.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 400:
		return KindStaleRevision
	case status == 401 || status == 403:
		return KindUnauthorized
	case status == 404:
		return KindNotFound
	case status >= 500 && status < 600:
		return KindServerError
	default:
		return KindRejected
	}
}

// BackendError represents an error from a remote operation.
// It carries the HTTP status, the operation and the affected task.
type BackendError struct {
	Operation  string    // e.g., "List", "Add", "Delete"
	Kind       ErrorKind // Classification used by errors.Is
	StatusCode int       // HTTP status code (0 if not an HTTP error)
	Message    string    // Human-readable error message
	TaskUID    string    // Optional: affected task UID
	Body       string    // Optional: response body for debugging
	Err        error     // Optional: underlying error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error for error wrapping
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *BackendError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// IsNotFound returns true if the error is a 404 Not Found
func (e *BackendError) IsNotFound() bool {
	return e.Kind == KindNotFound
}

// IsUnauthorized returns true if the error is a 401 Unauthorized or 403 Forbidden
func (e *BackendError) IsUnauthorized() bool {
	return e.Kind == KindUnauthorized
}

// IsServerError returns true if the error is a 5xx server error
func (e *BackendError) IsServerError() bool {
	return e.Kind == KindServerError
}

// IsStaleRevision returns true if the server rejected the presented revision
func (e *BackendError) IsStaleRevision() bool {
	return e.Kind == KindStaleRevision
}

// NewBackendError creates a BackendError classified from an HTTP status
func NewBackendError(operation string, statusCode int, message string) *BackendError {
	return &BackendError{
		Operation:  operation,
		Kind:       KindForStatus(statusCode),
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewTransportError wraps a network level failure
func NewTransportError(operation string, err error) *BackendError {
	return &BackendError{
		Operation: operation,
		Kind:      KindTransport,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewDecodingError wraps a response that did not match the wire shape
func NewDecodingError(operation string, err error) *BackendError {
	return &BackendError{
		Operation: operation,
		Kind:      KindDecodingFailed,
		Message:   err.Error(),
		Err:       err,
	}
}

// WithTaskUID adds task UID to the error for context
func (e *BackendError) WithTaskUID(uid string) *BackendError {
	e.TaskUID = uid
	return e
}

// WithBody adds the response body to the error for debugging
func (e *BackendError) WithBody(body string) *BackendError {
	e.Body = body
	return e
}

// WithError wraps an underlying error
func (e *BackendError) WithError(err error) *BackendError {
	e.Err = err
	return e
}

// IsProtocolError reports whether err originated at the remote boundary
func IsProtocolError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
