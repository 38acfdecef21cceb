package utils

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a helpful suggestion for the user
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// Common error constructors with suggestions

// ErrTaskNotFound creates an error when no task id starts with prefix
func ErrTaskNotFound(prefix string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no task matches id '%s'", prefix),
		Suggestion: "Run 'todosync list --ids' to see task ids",
	}
}

// ErrAmbiguousID creates an error when an id prefix matches several tasks
func ErrAmbiguousID(prefix string, matches []string) error {
	shown := matches
	if len(shown) > 5 {
		shown = shown[:5]
	}
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("id '%s' matches %d tasks: %s", prefix, len(matches), strings.Join(shown, ", ")),
		Suggestion: "Use a longer id prefix",
	}
}

// ErrTokenNotFound creates an error when no token is configured for a remote
func ErrTokenNotFound(remote string) error {
	envVar := "TODOSYNC_" + strings.ToUpper(strings.ReplaceAll(remote, "-", "_")) + "_TOKEN"
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no token found for remote '%s'", remote),
		Suggestion: fmt.Sprintf("Store one with 'todosync credentials set %s', set %s, or use --offline", remote, envVar),
	}
}

// ErrAuthenticationFailed creates an error when the remote rejects the token
func ErrAuthenticationFailed(remote string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("authentication failed for remote '%s'", remote),
		Suggestion: fmt.Sprintf("Check your token with 'todosync credentials get %s' and update it if needed", remote),
	}
}

// ErrRemoteOffline creates an error when the remote cannot be reached.
// Local changes are kept and sent on the next successful sync.
func ErrRemoteOffline(remote, reason string) error {
	suggestion := "Check your internet connection and run 'todosync sync' later"
	if strings.Contains(reason, "no such host") || strings.Contains(reason, "DNS") {
		suggestion = "Check your DNS settings and internet connection"
	} else if strings.Contains(reason, "refused") {
		suggestion = "Check if the server is running and accessible"
	} else if strings.Contains(reason, "timeout") || strings.Contains(reason, "deadline exceeded") {
		suggestion = "The server may be slow or unreachable. Try again later"
	}

	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("remote '%s' is unreachable, changes kept locally: %s", remote, reason),
		Suggestion: suggestion,
	}
}

// ErrOutOfSync creates an error when the remote keeps rejecting our revision
func ErrOutOfSync(remote string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("local cache is out of date with remote '%s'", remote),
		Suggestion: "Run 'todosync sync' to reconcile",
	}
}

// ErrInvalidPriority creates an error for invalid priority values
func ErrInvalidPriority(priority string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid priority '%s'", priority),
		Suggestion: "Priority must be one of low (l), normal (n) or high (h)",
	}
}

// ErrInvalidDate creates an error for invalid date formats
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date: %s", dateStr),
		Suggestion: "Use YYYY-MM-DD (e.g., 2026-01-15) or a phrase like 'tomorrow' or 'next friday'",
	}
}

// ErrConfigFileNotFound creates an error when config file is not found
func ErrConfigFileNotFound(path string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("config file not found at %s", path),
		Suggestion: "Run todosync once without --config to create a default configuration file",
	}
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(field string, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration for '%s': %s", field, reason),
		Suggestion: fmt.Sprintf("Check ~/.config/todosync/config.yaml and fix the '%s' field", field),
	}
}

// WrapWithSuggestion wraps an existing error with a suggestion
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}
