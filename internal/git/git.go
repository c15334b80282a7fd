// Package git provides the version-control operations used while creating a
// run: checking for and creating the isolation branch, staging the working
// tree, and committing it.
//
// All operations shell out to the git CLI through a CommandExecutor so that
// tests can substitute a recording mock.
package git

import (
	"os/exec"
	"strings"

	"github.com/Iron-Ham/olx/internal/errors"
)

// -----------------------------------------------------------------------------
// Command Executor
// -----------------------------------------------------------------------------

// CommandExecutor abstracts command execution for testability.
// This allows tests to mock git commands without executing them.
type CommandExecutor interface {
	// Run executes a command and returns combined output.
	Run(dir string, name string, args ...string) ([]byte, error)

	// RunQuiet executes a command and returns only the error.
	RunQuiet(dir string, name string, args ...string) error
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// RunQuiet executes a command and returns only the error.
func (e *CLICommandExecutor) RunQuiet(dir string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.Run()
}

// -----------------------------------------------------------------------------
// Repository
// -----------------------------------------------------------------------------

// Repository runs git operations against a single working tree.
type Repository struct {
	dir      string
	executor CommandExecutor
}

// NewRepository creates a Repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{
		dir:      dir,
		executor: NewCLICommandExecutor(),
	}
}

// NewRepositoryWithExecutor creates a Repository with a custom executor.
// This is primarily useful for testing.
func NewRepositoryWithExecutor(dir string, executor CommandExecutor) *Repository {
	return &Repository{
		dir:      dir,
		executor: executor,
	}
}

// Dir returns the working tree the repository operates on.
func (r *Repository) Dir() string {
	return r.dir
}

// IsRepository reports whether the directory is inside a git working tree.
func (r *Repository) IsRepository() bool {
	output, err := r.executor.Run(r.dir, "git", "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == "true"
}

// BranchExists reports whether a local branch with the given name exists.
// Any failure to determine existence is reported as false.
func (r *Repository) BranchExists(branch string) bool {
	err := r.executor.RunQuiet(r.dir, "git", "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// CreateBranch creates branch from the current HEAD and checks it out. When
// the directory turns out not to be a working tree the error also matches
// errors.ErrNotGitRepository.
func (r *Repository) CreateBranch(branch string) error {
	output, err := r.executor.Run(r.dir, "git", "checkout", "-b", branch)
	if err != nil {
		if !r.IsRepository() {
			err = errors.Join(errors.ErrNotGitRepository, err)
		}
		return errors.NewGitError("failed to create branch", err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(string(output))
	}
	return nil
}

// StageAll stages every change in the working tree, including new and
// deleted files.
func (r *Repository) StageAll() error {
	output, err := r.executor.Run(r.dir, "git", "add", "-A")
	if err != nil {
		return errors.NewGitError("failed to stage changes", err).
			WithRepository(r.dir).
			WithGitOutput(string(output))
	}
	return nil
}

// Commit records the staged changes with the given message.
func (r *Repository) Commit(message string) error {
	output, err := r.executor.Run(r.dir, "git", "commit", "-m", message)
	if err != nil {
		return errors.NewGitError("failed to commit", err).
			WithRepository(r.dir).
			WithGitOutput(string(output))
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (r *Repository) CurrentBranch() (string, error) {
	output, err := r.executor.Run(r.dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.NewGitError("failed to get current branch", err).
			WithRepository(r.dir).
			WithGitOutput(string(output))
	}
	return strings.TrimSpace(string(output)), nil
}
