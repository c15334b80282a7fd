// Package errors provides centralized error definitions for olx. It defines
// the sentinel errors, the typed errors produced by each pipeline stage, and
// the classification helpers that map an error onto a process exit status.
//
// # Error Types
//
// Usage errors are detected before any side effect and are always the
// user's to fix:
//   - InvalidDateError: a date literal did not parse as YYYY-MM-DD
//   - ReservedNameError: the run name equals the baseline identifier
//   - InvalidNameError: the run name is not a single path element
//   - DateOrderError: the end date precedes the start date
//
// Precondition conflicts are detected before anything destructive happens:
//   - BranchExistsError: the isolation branch is already present
//
// Collaborator failures are reported per stage:
//   - GitError: a git invocation failed (carries captured git output)
//   - RenderError: template rendering failed (carries the diagnostic trace)
//   - StageError: a named stage failed with a user-facing message
//
// # Usage
//
//	err := errors.NewGitError("failed to create branch", cause).
//		WithBranch("run/fall2019").
//		WithGitOutput(string(output))
//
//	if errors.IsUsage(err) { ... }
//	os.Exit(errors.ExitCode(err))
package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// DisplayDateFormat is the layout used whenever a date is shown to the user.
const DisplayDateFormat = "2006-01-02"

// Process exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrUsage marks every error caused by invalid invocation arguments.
	ErrUsage = New("usage error")
	// ErrBranchExists indicates that the isolation branch already exists.
	ErrBranchExists = New("branch already exists")
	// ErrNotGitRepository indicates that the course directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrBaselineMissing indicates that the shared policy baseline is absent.
	ErrBaselineMissing = New("policy baseline missing")
)

// -----------------------------------------------------------------------------
// Usage Errors
// -----------------------------------------------------------------------------

// UsageError is a free-form usage error, used for malformed flags,
// missing arguments, and unknown subcommands.
type UsageError struct {
	Message string
	cause   error
}

// NewUsageError creates a new UsageError.
func NewUsageError(message string) *UsageError {
	return &UsageError{Message: message}
}

// WithCause adds a cause to the error.
func (e *UsageError) WithCause(cause error) *UsageError {
	e.cause = cause
	return e
}

func (e *UsageError) Error() string { return e.Message }

// Unwrap returns the underlying error.
func (e *UsageError) Unwrap() error { return e.cause }

// Is reports whether target is ErrUsage.
func (e *UsageError) Is(target error) bool { return target == ErrUsage }

// InvalidDateError reports a date literal that is not a valid calendar date.
//
// Example:
//
//	err := errors.NewInvalidDateError("2019-02-31", cause)
//	fmt.Println(err) // "Not a valid date: '2019-02-31'."
type InvalidDateError struct {
	Literal string
	cause   error
}

// NewInvalidDateError creates a new InvalidDateError.
func NewInvalidDateError(literal string, cause error) *InvalidDateError {
	return &InvalidDateError{Literal: literal, cause: cause}
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("Not a valid date: '%s'.", e.Literal)
}

// Unwrap returns the underlying parse error.
func (e *InvalidDateError) Unwrap() error { return e.cause }

// Is reports whether target is ErrUsage.
func (e *InvalidDateError) Is(target error) bool { return target == ErrUsage }

// ReservedNameError reports a run name that collides with the baseline.
type ReservedNameError struct {
	Name string
}

// NewReservedNameError creates a new ReservedNameError.
func NewReservedNameError(name string) *ReservedNameError {
	return &ReservedNameError{Name: name}
}

func (e *ReservedNameError) Error() string {
	return "This run name is reserved.  Please choose another one."
}

// Is reports whether target is ErrUsage.
func (e *ReservedNameError) Is(target error) bool { return target == ErrUsage }

// InvalidNameError reports a run name that cannot name a file: empty, "."
// or "..", or containing a path separator.
type InvalidNameError struct {
	Name string
}

// NewInvalidNameError creates a new InvalidNameError.
func NewInvalidNameError(name string) *InvalidNameError {
	return &InvalidNameError{Name: name}
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("Not a valid run name: '%s'.  Run names cannot be empty or contain path separators.", e.Name)
}

// Is reports whether target is ErrUsage.
func (e *InvalidNameError) Is(target error) bool { return target == ErrUsage }

// DateOrderError reports an end date earlier than the start date.
type DateOrderError struct {
	Start time.Time
	End   time.Time
}

// NewDateOrderError creates a new DateOrderError.
func NewDateOrderError(start, end time.Time) *DateOrderError {
	return &DateOrderError{Start: start, End: end}
}

func (e *DateOrderError) Error() string {
	return fmt.Sprintf("End date [%s] must be greater than or equal to start date [%s].",
		e.End.Format(DisplayDateFormat), e.Start.Format(DisplayDateFormat))
}

// Is reports whether target is ErrUsage.
func (e *DateOrderError) Is(target error) bool { return target == ErrUsage }

// -----------------------------------------------------------------------------
// Precondition Conflicts
// -----------------------------------------------------------------------------

// BranchExistsError reports that the isolation branch is already present.
// The message carries the command that removes the stale branch.
type BranchExistsError struct {
	Branch string
}

// NewBranchExistsError creates a new BranchExistsError.
func NewBranchExistsError(branch string) *BranchExistsError {
	return &BranchExistsError{Branch: branch}
}

func (e *BranchExistsError) Error() string {
	return fmt.Sprintf("The target git branch already exists.  Please delete it and try again.\n"+
		"You can do so with: \n\ngit branch -D %s\n", e.Branch)
}

// Is reports whether target is ErrBranchExists.
func (e *BranchExistsError) Is(target error) bool { return target == ErrBranchExists }

// -----------------------------------------------------------------------------
// Collaborator Failures
// -----------------------------------------------------------------------------

// GitError represents errors related to git operations.
//
// Example:
//
//	err := errors.NewGitError("failed to commit", cause)
//	err = err.WithBranch("run/fall2019").WithRepository("/src/course")
type GitError struct {
	message    string
	cause      error
	Branch     string
	Repository string
	GitOutput  string
}

// NewGitError creates a new GitError.
func NewGitError(message string, cause error) *GitError {
	return &GitError{message: message, cause: cause}
}

// WithBranch adds a branch name to the error context.
func (e *GitError) WithBranch(branch string) *GitError {
	e.Branch = branch
	return e
}

// WithRepository adds a repository path to the error context.
func (e *GitError) WithRepository(path string) *GitError {
	e.Repository = path
	return e
}

// WithGitOutput adds git command output to the error context.
func (e *GitError) WithGitOutput(output string) *GitError {
	e.GitOutput = strings.TrimSpace(output)
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	var parts []string
	if e.Branch != "" {
		parts = append(parts, fmt.Sprintf("branch=%s", e.Branch))
	}
	if e.Repository != "" {
		parts = append(parts, fmt.Sprintf("repo=%s", e.Repository))
	}

	prefix := "git error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("git error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.GitOutput != "" {
		msg = fmt.Sprintf("%s\ngit output: %s", msg, e.GitOutput)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Unwrap returns the underlying error.
func (e *GitError) Unwrap() error { return e.cause }

// RenderError is a template rendering failure. Trace holds the complete
// human-readable diagnostic and is what the user sees.
type RenderError struct {
	Template string
	Line     int
	Trace    string
	cause    error
}

// NewRenderError creates a new RenderError.
func NewRenderError(template string, cause error) *RenderError {
	return &RenderError{Template: template, cause: cause}
}

// WithLine records the template line the failure points at.
func (e *RenderError) WithLine(line int) *RenderError {
	e.Line = line
	return e
}

// WithTrace sets the diagnostic trace.
func (e *RenderError) WithTrace(trace string) *RenderError {
	e.Trace = trace
	return e
}

// Error returns the trace when present, a one-line summary otherwise.
func (e *RenderError) Error() string {
	if e.Trace != "" {
		return e.Trace
	}
	loc := e.Template
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Template, e.Line)
	}
	if e.cause != nil {
		return fmt.Sprintf("render error [%s]: %v", loc, e.cause)
	}
	return fmt.Sprintf("render error [%s]", loc)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error { return e.cause }

// StageError is a fatal failure of one pipeline stage. Message is the
// user-facing line; Cause keeps the detail for logs and debugging. Branch is
// set when an isolation branch had already been created and was left behind.
type StageError struct {
	Stage   string
	Message string
	Cause   error
	Branch  string
}

// NewStageError creates a new StageError.
func NewStageError(stage, message string, cause error) *StageError {
	return &StageError{Stage: stage, Message: message, Cause: cause}
}

// WithBranch records the isolation branch left behind by the failure.
func (e *StageError) WithBranch(branch string) *StageError {
	e.Branch = branch
	return e
}

func (e *StageError) Error() string { return e.Message }

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Cause }

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsUsage returns true if err was caused by invalid invocation arguments.
func IsUsage(err error) bool {
	return err != nil && Is(err, ErrUsage)
}

// ExitCode maps an error to a process exit status: 0 for nil, 2 for usage
// errors, and 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsUsage(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// Print writes the user-facing text of err to w, ending with a newline.
// A rendering failure prints its full trace.
func Print(w io.Writer, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	var renderErr *RenderError
	if As(err, &renderErr) {
		msg = renderErr.Error()
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(w, msg)
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
