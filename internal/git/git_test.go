package git

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Iron-Ham/olx/internal/errors"
)

// -----------------------------------------------------------------------------
// Mock Command Executor for Unit Tests
// -----------------------------------------------------------------------------

// mockCall records a single command invocation
type mockCall struct {
	dir  string
	name string
	args []string
}

// mockExecutor is a test double for CommandExecutor
type mockExecutor struct {
	calls      []mockCall
	runOutputs [][]byte
	runErrors  []error
	callIndex  int
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{}
}

func (m *mockExecutor) addResponse(output []byte, err error) {
	m.runOutputs = append(m.runOutputs, output)
	m.runErrors = append(m.runErrors, err)
}

func (m *mockExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, mockCall{dir: dir, name: name, args: args})
	idx := m.callIndex
	m.callIndex++
	if idx < len(m.runOutputs) {
		return m.runOutputs[idx], m.runErrors[idx]
	}
	return nil, nil
}

func (m *mockExecutor) RunQuiet(dir string, name string, args ...string) error {
	m.calls = append(m.calls, mockCall{dir: dir, name: name, args: args})
	idx := m.callIndex
	m.callIndex++
	if idx < len(m.runErrors) {
		return m.runErrors[idx]
	}
	return nil
}

func (m *mockExecutor) lastCall() mockCall {
	if len(m.calls) == 0 {
		return mockCall{}
	}
	return m.calls[len(m.calls)-1]
}

// -----------------------------------------------------------------------------
// Repository Unit Tests
// -----------------------------------------------------------------------------

func TestRepository_BranchExists(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "ref resolves", err: nil, want: true},
		{name: "ref missing", err: errors.New("exit status 1"), want: false},
		{name: "not a repository", err: errors.New("exit status 128"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockExecutor()
			mock.addResponse(nil, tt.err)
			repo := NewRepositoryWithExecutor("/course", mock)

			if got := repo.BranchExists("run/fall2019"); got != tt.want {
				t.Errorf("BranchExists() = %v, want %v", got, tt.want)
			}

			call := mock.lastCall()
			wantArgs := []string{"rev-parse", "--verify", "--quiet", "refs/heads/run/fall2019"}
			if call.dir != "/course" || call.name != "git" || !reflect.DeepEqual(call.args, wantArgs) {
				t.Errorf("call = %+v, want git %v in /course", call, wantArgs)
			}
		})
	}
}

func TestRepository_Commands(t *testing.T) {
	tests := []struct {
		name     string
		run      func(r *Repository) error
		wantArgs []string
		wantMsg  string
	}{
		{
			name:     "create branch",
			run:      func(r *Repository) error { return r.CreateBranch("run/fall2019") },
			wantArgs: []string{"checkout", "-b", "run/fall2019"},
			wantMsg:  "failed to create branch",
		},
		{
			name:     "stage all",
			run:      func(r *Repository) error { return r.StageAll() },
			wantArgs: []string{"add", "-A"},
			wantMsg:  "failed to stage changes",
		},
		{
			name:     "commit",
			run:      func(r *Repository) error { return r.Commit("New run: fall2019") },
			wantArgs: []string{"commit", "-m", "New run: fall2019"},
			wantMsg:  "failed to commit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" succeeds", func(t *testing.T) {
			mock := newMockExecutor()
			mock.addResponse(nil, nil)
			repo := NewRepositoryWithExecutor("/course", mock)

			if err := tt.run(repo); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := mock.lastCall().args; !reflect.DeepEqual(got, tt.wantArgs) {
				t.Errorf("args = %v, want %v", got, tt.wantArgs)
			}
		})

		t.Run(tt.name+" fails", func(t *testing.T) {
			mock := newMockExecutor()
			mock.addResponse([]byte("fatal: something went wrong\n"), errors.New("exit status 128"))
			repo := NewRepositoryWithExecutor("/course", mock)

			err := tt.run(repo)
			var gitErr *errors.GitError
			if !errors.As(err, &gitErr) {
				t.Fatalf("error = %v, want *GitError", err)
			}
			if gitErr.GitOutput != "fatal: something went wrong" {
				t.Errorf("GitOutput = %q", gitErr.GitOutput)
			}
			if gitErr.Repository != "/course" {
				t.Errorf("Repository = %q", gitErr.Repository)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRepository_IsRepository(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   bool
	}{
		{"inside work tree", "true\n", nil, true},
		{"bare repository", "false\n", nil, false},
		{"not a repository", "fatal: not a git repository\n", errors.New("exit status 128"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockExecutor()
			mock.addResponse([]byte(tt.output), tt.err)
			repo := NewRepositoryWithExecutor("/course", mock)

			if got := repo.IsRepository(); got != tt.want {
				t.Errorf("IsRepository() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRepository_CurrentBranch(t *testing.T) {
	mock := newMockExecutor()
	mock.addResponse([]byte("run/fall2019\n"), nil)
	repo := NewRepositoryWithExecutor("/course", mock)

	got, err := repo.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch() error = %v", err)
	}
	if got != "run/fall2019" {
		t.Errorf("CurrentBranch() = %q", got)
	}
}

func TestRepository_CreateBranchDiagnosesMissingRepository(t *testing.T) {
	tests := []struct {
		name      string
		revParse  []byte
		revErr    error
		wantNoGit bool
	}{
		{"outside a work tree", []byte("fatal: not a git repository\n"), errors.New("exit status 128"), true},
		{"inside a work tree", []byte("true\n"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockExecutor()
			mock.addResponse([]byte("fatal: cannot create branch\n"), errors.New("exit status 128"))
			mock.addResponse(tt.revParse, tt.revErr)
			repo := NewRepositoryWithExecutor("/course", mock)

			err := repo.CreateBranch("run/fall2019")
			if err == nil {
				t.Fatal("CreateBranch() should fail")
			}
			if got := errors.Is(err, errors.ErrNotGitRepository); got != tt.wantNoGit {
				t.Errorf("errors.Is(err, ErrNotGitRepository) = %v, want %v", got, tt.wantNoGit)
			}
			wantArgs := []string{"rev-parse", "--is-inside-work-tree"}
			if got := mock.lastCall().args; !reflect.DeepEqual(got, wantArgs) {
				t.Errorf("last call args = %v, want %v", got, wantArgs)
			}
		})
	}
}
