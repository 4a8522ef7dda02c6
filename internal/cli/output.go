package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/custody/internal/failure"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Contract failure or failing scenarios
	ExitCommandError = 2 // Command error (bad arguments, unreadable files, ledger unavailable)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the output, so
	// main does not print it again.
	Reported bool
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported reports whether err was already written to the output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
	TxID   string    `json:"tx_id,omitempty"` // committed transaction, if any
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // failure kind or E_COMMAND
	Message string `json:"message"`           // human-readable message
	Key     string `json:"key,omitempty"`     // ledger key involved
	Details any    `json:"details,omitempty"` // additional context
}

// CodeCommand is the error code of failures outside the contract.
const CodeCommand = "E_COMMAND"

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(txID string, data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data, TxID: txID})
	}

	switch v := data.(type) {
	case json.RawMessage:
		fmt.Fprintln(f.Writer, string(v))
	case string:
		if v != "" {
			fmt.Fprintln(f.Writer, v)
		} else if txID != "" {
			fmt.Fprintf(f.Writer, "committed %s\n", txID)
		}
	default:
		fmt.Fprintln(f.Writer, v)
	}
	return nil
}

// Fail reports err in the configured format and returns the ExitError the
// command should return. Contract failures exit with ExitFailure; anything
// else with ExitCommandError.
func (f *OutputFormatter) Fail(err error) error {
	code := CodeCommand
	exit := ExitCommandError
	key := ""

	var ferr *failure.Error
	if errors.As(err, &ferr) {
		code = string(ferr.Kind)
		key = ferr.Key
		exit = ExitFailure
	}

	exitErr := WrapExitError(exit, code, err)
	if f.Format != "json" {
		return exitErr
	}

	if encErr := f.encode(CLIResponse{
		Status: "error",
		Error:  &CLIError{Code: code, Message: err.Error(), Key: key},
	}); encErr != nil {
		return encErr
	}
	exitErr.Reported = true
	return exitErr
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
