// Package testutil provides testing utilities for olx tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// BaselinePolicy is the content of the policy file placed in the fixture
// baseline directory.
const BaselinePolicy = "{\"course/course\": {\"discussion_topics\": {}}}\n"

// SetupTestRepo creates a temporary git repository for testing.
// Returns the path to the repository. The repository is automatically
// cleaned up when the test completes.
func SetupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	if err := runGit(dir, "init"); err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}
	if err := runGit(dir, "config", "user.email", "test@olx.dev"); err != nil {
		t.Fatalf("failed to configure git email: %v", err)
	}
	if err := runGit(dir, "config", "user.name", "olx Test"); err != nil {
		t.Fatalf("failed to configure git name: %v", err)
	}

	// Branch creation needs a HEAD commit to start from
	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Test Course\n"), 0644); err != nil {
		t.Fatalf("failed to create README: %v", err)
	}
	if err := runGit(dir, "add", "."); err != nil {
		t.Fatalf("failed to stage files: %v", err)
	}
	if err := runGit(dir, "commit", "-m", "Initial commit"); err != nil {
		t.Fatalf("failed to create initial commit: %v", err)
	}

	// Pin the default branch name regardless of init.defaultBranch
	if err := runGit(dir, "branch", "-M", "master"); err != nil {
		t.Fatalf("failed to rename branch to master: %v", err)
	}

	return dir
}

// SetupCourseRepo creates a test repository laid out like a course: a
// policies/_base baseline directory committed alongside any extra files.
func SetupCourseRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	all := map[string]string{
		"policies/_base/policy.json": BaselinePolicy,
	}
	for path, content := range files {
		all[path] = content
	}
	return SetupTestRepoWithContent(t, all)
}

// SetupCourseDir creates a course directory without git: a policies/_base
// baseline plus the given files.
func SetupCourseDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	WriteFile(t, dir, "policies/_base/policy.json", BaselinePolicy)
	for path, content := range files {
		WriteFile(t, dir, path, content)
	}
	return dir
}

// SetupTestRepoWithContent creates a test repository with specified files.
// The files map contains relative paths to file contents.
func SetupTestRepoWithContent(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := SetupTestRepo(t)

	for path, content := range files {
		WriteFile(t, dir, path, content)
	}

	if err := runGit(dir, "add", "."); err != nil {
		t.Fatalf("failed to stage files: %v", err)
	}
	if err := runGit(dir, "commit", "-m", "Add test files"); err != nil {
		t.Fatalf("failed to commit test files: %v", err)
	}

	return dir
}

// WriteFile creates or replaces a file below dir, creating parents.
func WriteFile(t *testing.T, dir, path, content string) {
	t.Helper()

	fullPath := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// CreateBranch creates a new branch in the repository.
func CreateBranch(t *testing.T, repoDir, branch string) {
	t.Helper()

	if err := runGit(repoDir, "branch", branch); err != nil {
		t.Fatalf("failed to create branch %s: %v", branch, err)
	}
}

// GetCurrentBranch returns the current branch name.
func GetCurrentBranch(t *testing.T, repoDir string) string {
	t.Helper()

	return gitOutput(t, repoDir, "rev-parse", "--abbrev-ref", "HEAD")
}

// GetCommitCount returns the number of commits in the repository.
func GetCommitCount(t *testing.T, repoDir string) int {
	t.Helper()

	out := gitOutput(t, repoDir, "rev-list", "--count", "HEAD")
	count, err := strconv.Atoi(out)
	if err != nil {
		t.Fatalf("failed to parse commit count %q: %v", out, err)
	}
	return count
}

// GetLastCommitMessage returns the subject of the HEAD commit.
func GetLastCommitMessage(t *testing.T, repoDir string) string {
	t.Helper()

	return gitOutput(t, repoDir, "log", "-1", "--format=%s")
}

// GetCommittedFiles returns the paths changed by the HEAD commit.
func GetCommittedFiles(t *testing.T, repoDir string) []string {
	t.Helper()

	out := gitOutput(t, repoDir, "diff-tree", "--no-commit-id", "--name-only", "-r", "HEAD")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// HasUncommittedChanges returns true if the repository has uncommitted changes.
func HasUncommittedChanges(t *testing.T, repoDir string) bool {
	t.Helper()

	return gitOutput(t, repoDir, "status", "--porcelain") != ""
}

// SkipIfNoGit skips the test if git is not installed.
func SkipIfNoGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping test")
	}
}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %s: %v", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output))
}

// runGit runs a git command in the specified directory.
func runGit(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=olx Test",
		"GIT_AUTHOR_EMAIL=test@olx.dev",
		"GIT_COMMITTER_NAME=olx Test",
		"GIT_COMMITTER_EMAIL=test@olx.dev",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &gitError{args: args, output: output, err: err}
	}
	return nil
}

type gitError struct {
	args   []string
	output []byte
	err    error
}

func (e *gitError) Error() string {
	return "git " + strings.Join(e.args, " ") + ": " + e.err.Error() + "\n" + string(e.output)
}

func (e *gitError) Unwrap() error {
	return e.err
}
