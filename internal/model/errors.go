package model

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the failure taxonomy. Callers attach context
// with zerr.Wrap / zerr.With, which keeps the sentinel reachable through
// errors.Is.
var (
	// ErrNotFound reports a missing local file or an unknown container name.
	ErrNotFound = errors.New("not found")

	// ErrFormatUnknown reports a package file that is neither deb nor rpm.
	ErrFormatUnknown = errors.New("unknown package format")

	// ErrClassificationFailure reports a container whose family could not
	// be determined, or which could not be entered at all.
	ErrClassificationFailure = errors.New("container classification failed")

	// ErrNoMatchFound reports that selection was exhausted without a
	// usable container.
	ErrNoMatchFound = errors.New("no matching container")

	// ErrIntegrityMismatch reports a transferred file whose in-container
	// size differs from the local size.
	ErrIntegrityMismatch = errors.New("transfer integrity mismatch")

	// ErrInstallFailure reports that every install attempt failed.
	ErrInstallFailure = errors.New("installation failed")

	// ErrExportFailure reports a single artifact that could not be
	// exported. It is always non-fatal.
	ErrExportFailure = errors.New("export failed")

	// ErrToolMissing reports that a required host executable, such as
	// distrobox, is not installed.
	ErrToolMissing = errors.New("required tool is not installed")

	// ErrFamilyMismatch reports a requested family that differs from the
	// container's classification.
	ErrFamilyMismatch = errors.New("family does not match container")

	// ErrConfigIO reports a failure to read or persist settings, state or
	// snapshots. It never aborts the primary operation.
	ErrConfigIO = errors.New("config I/O failed")
)

// ExitCode defines the CLI process exit codes.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unexpected or unclassified error.
	ExitGeneralError ExitCode = 1

	// ExitNotFound indicates a missing package file or container.
	ExitNotFound ExitCode = 2

	// ExitFormatUnknown indicates an unrecognised package file.
	ExitFormatUnknown ExitCode = 3

	// ExitClassification indicates a container family could not be determined.
	ExitClassification ExitCode = 4

	// ExitNoMatch indicates that no container could be selected.
	ExitNoMatch ExitCode = 5

	// ExitIntegrity indicates a truncated transfer into the container.
	ExitIntegrity ExitCode = 6

	// ExitInstallFailed indicates the package manager failed in every attempt.
	ExitInstallFailed ExitCode = 7

	// ExitUserCancelled indicates the user declined a confirmation prompt
	// or interrupted the command (SIGINT/SIGTERM).
	ExitUserCancelled ExitCode = 8
)

// ExitCodeFor maps an error chain onto the exit code of the first
// taxonomy sentinel it wraps. Unknown errors map to ExitGeneralError.
func ExitCodeFor(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrToolMissing):
		return ExitNotFound
	case errors.Is(err, ErrFormatUnknown):
		return ExitFormatUnknown
	case errors.Is(err, ErrClassificationFailure), errors.Is(err, ErrFamilyMismatch):
		return ExitClassification
	case errors.Is(err, ErrNoMatchFound):
		return ExitNoMatch
	case errors.Is(err, ErrIntegrityMismatch):
		return ExitIntegrity
	case errors.Is(err, ErrInstallFailure):
		return ExitInstallFailed
	default:
		return ExitGeneralError
	}
}

// CLIError is a custom error type that carries an exit code.
// Commands return it so the root command can translate failures into
// the correct OS exit status.
type CLIError struct {
	// Code is the exit code the process should terminate with.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is / errors.As support.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError without an underlying cause.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError wrapping an underlying error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// AsCLIError converts any error into a CLIError, deriving the exit code
// from the taxonomy when err is not already a CLIError.
func AsCLIError(message string, err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return WrapCLIError(ExitCodeFor(err), message, err)
}
