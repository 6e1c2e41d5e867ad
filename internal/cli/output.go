package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	apperrors "ert-inspection/internal/common/errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // everything saved / command done
	ExitFailure      = 1 // validation failure or partial submission
	ExitCommandError = 2 // bad flags, unreachable storage, etc.
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Inspection errors
// (validation, partial saves) map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success prints data as JSON, or calls text for the human format.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.writeJSON(CLIResponse{Status: "ok", Data: data})
	}
	if text != nil {
		text(f.Writer)
	}
	return nil
}

// Error prints err using its user-facing message and returns it so the
// command still exits non-zero.
func (f *OutputFormatter) Error(err error, data interface{}) error {
	code := string(apperrors.CodeOf(err))
	if code == "" {
		code = "ERROR"
	}
	msg := apperrors.UserMessage(err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) && apperrors.CodeOf(err) == "" {
		msg = exitErr.Error()
	}

	if f.Format == "json" {
		if werr := f.writeJSON(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: msg},
		}); werr != nil {
			return werr
		}
	} else {
		fmt.Fprintf(f.Writer, "Error: %s\n", msg)
	}
	return &silentError{err: err}
}

func (f *OutputFormatter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// silentError marks an error that has already been reported to the user.
type silentError struct {
	err error
}

func (e *silentError) Error() string { return e.err.Error() }
func (e *silentError) Unwrap() error { return e.err }

// IsReported reports whether err was already printed by a command.
func IsReported(err error) bool {
	var s *silentError
	return errors.As(err, &s)
}
