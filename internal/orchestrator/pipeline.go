// Package orchestrator sequences the stages of creating a course run.
//
// # Stages
//
// A run moves through these states, strictly in order:
//
//   - [StateStart]: nothing validated yet
//   - [StateValidated]: arguments parsed into a run.Configuration
//   - [StateBranchChecked]: isolation branch checked and created (only with CreateBranch)
//   - [StateRendered]: course files rendered from templates
//   - [StateLinked]: policy directory linked to the baseline
//   - [StateCommitted]: changes staged and committed (only with CreateBranch)
//   - [StateDone]: completion acknowledged
//
// Any failure moves the pipeline to [StateAborted] and is returned as a typed
// error from the errors package. Nothing applied by an earlier stage is undone:
// if a stage after branch creation fails, the branch stays checked out and the
// returned *errors.StageError names it.
package orchestrator

import (
	"fmt"

	"github.com/Iron-Ham/olx/internal/errors"
	"github.com/Iron-Ham/olx/internal/logging"
	"github.com/Iron-Ham/olx/internal/render"
	"github.com/Iron-Ham/olx/internal/run"
)

// State is a pipeline state.
type State string

// Pipeline states.
const (
	StateStart         State = "start"
	StateValidated     State = "validated"
	StateBranchChecked State = "branch_checked"
	StateRendered      State = "rendered"
	StateLinked        State = "linked"
	StateCommitted     State = "committed"
	StateDone          State = "done"
	StateAborted       State = "aborted"
)

// Stage names used in logs and errors.
const (
	StageValidate     = "validate"
	StageCheckBranch  = "check_branch"
	StageCreateBranch = "create_branch"
	StageRender       = "render"
	StageLink         = "link"
	StageCommit       = "commit"
)

// User-facing failure messages.
const (
	msgCreateBranch = "Error creating branch '%s'"
	msgRender       = "Error rendering templates."
	msgLink         = "Error creating policies symlink."
	msgCommit       = "Error committing new run."
)

// BranchManager checks for and creates isolation branches.
type BranchManager interface {
	// BranchExists reports whether branch exists. Failure to tell counts as false.
	BranchExists(branch string) bool
	// CreateBranch creates branch and switches to it.
	CreateBranch(branch string) error
}

// CommitManager records the working tree.
type CommitManager interface {
	StageAll() error
	Commit(message string) error
}

// TemplateRenderer produces the run's course files.
type TemplateRenderer interface {
	Render(ctx run.Context) (render.Result, error)
}

// SymlinkCreator links a run's policy directory to the baseline.
type SymlinkCreator interface {
	Link(baseline, name string) error
}

// Notifier receives the informational messages of a successful run.
type Notifier interface {
	BranchFollowUp(branch, mainBranch string)
	Done()
}

// Dependencies are the collaborators the pipeline drives.
type Dependencies struct {
	Branches BranchManager
	Commits  CommitManager
	Renderer TemplateRenderer
	Links    SymlinkCreator
	Notifier Notifier
}

// Config names the branches the pipeline works with.
type Config struct {
	// BranchPrefix namespaces isolation branches as <prefix>/<name>.
	BranchPrefix string
	// MainBranch is suggested for switching back after a run.
	MainBranch string
}

// Report describes a completed run.
type Report struct {
	Run    run.Configuration
	Branch string
	Files  []string
}

// Orchestrator runs the new-run pipeline. An Orchestrator is single use.
type Orchestrator struct {
	deps   Dependencies
	cfg    Config
	logger *logging.Logger

	state   State
	history []State
}

// New creates an Orchestrator. A nil logger disables logging.
func New(deps Dependencies, cfg Config, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		logger:  logger,
		state:   StateStart,
		history: []State{StateStart},
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	return o.state
}

// History returns every state the pipeline has entered, in order.
func (o *Orchestrator) History() []State {
	return append([]State(nil), o.history...)
}

func (o *Orchestrator) enter(s State) {
	o.state = s
	o.history = append(o.history, s)
}

func (o *Orchestrator) abort(log *logging.Logger, err error) error {
	log.Error("stage failed", "error", err)
	o.enter(StateAborted)
	return err
}

// Run validates args and executes every stage. The returned error is one of
// the typed errors of the errors package.
func (o *Orchestrator) Run(args run.Args) (*Report, error) {
	if o.state != StateStart {
		return nil, errors.New("orchestrator already ran")
	}

	log := o.logger.WithStage(StageValidate)
	cfg, err := run.Parse(args)
	if err != nil {
		return nil, o.abort(log, err)
	}
	o.enter(StateValidated)

	log = o.logger.WithRun(cfg.Name)
	report := &Report{Run: cfg}

	if cfg.CreateBranch {
		report.Branch = run.BranchName(o.cfg.BranchPrefix, cfg.Name)
		if err := o.isolate(log, report.Branch); err != nil {
			return nil, err
		}
		o.enter(StateBranchChecked)
	}

	stage := log.WithStage(StageRender)
	stage.Info("stage started")
	result, err := o.deps.Renderer.Render(cfg.Context())
	if err != nil {
		return nil, o.abort(stage, o.lateFailure(StageRender, msgRender, err, report.Branch))
	}
	stage.Info("stage finished", "files", result.Files)
	report.Files = result.Files
	o.enter(StateRendered)

	stage = log.WithStage(StageLink)
	stage.Info("stage started")
	if err := o.deps.Links.Link(run.BaselineName, cfg.Name); err != nil {
		return nil, o.abort(stage, o.lateFailure(StageLink, msgLink, err, report.Branch))
	}
	stage.Info("stage finished")
	o.enter(StateLinked)

	if cfg.CreateBranch {
		stage = log.WithStage(StageCommit)
		stage.Info("stage started")
		if err := o.commit(cfg.Name); err != nil {
			return nil, o.abort(stage, o.lateFailure(StageCommit, msgCommit, err, report.Branch))
		}
		stage.Info("stage finished")
		o.enter(StateCommitted)
		o.deps.Notifier.BranchFollowUp(report.Branch, o.cfg.MainBranch)
	}

	o.deps.Notifier.Done()
	o.enter(StateDone)
	log.Info("run created", "branch", report.Branch)
	return report, nil
}

// isolate refuses an existing branch and otherwise creates it.
func (o *Orchestrator) isolate(log *logging.Logger, branch string) error {
	stage := log.WithStage(StageCheckBranch)
	stage.Info("stage started", "branch", branch)
	if o.deps.Branches.BranchExists(branch) {
		return o.abort(stage, errors.NewBranchExistsError(branch))
	}
	stage.Info("stage finished")

	stage = log.WithStage(StageCreateBranch)
	stage.Info("stage started", "branch", branch)
	if err := o.deps.Branches.CreateBranch(branch); err != nil {
		return o.abort(stage, errors.NewStageError(StageCreateBranch, fmt.Sprintf(msgCreateBranch, branch), err))
	}
	stage.Info("stage finished")
	return nil
}

func (o *Orchestrator) commit(name string) error {
	if err := o.deps.Commits.StageAll(); err != nil {
		return err
	}
	return o.deps.Commits.Commit(run.CommitMessage(name))
}

func (o *Orchestrator) lateFailure(stage, message string, cause error, branch string) error {
	return errors.NewStageError(stage, message, cause).WithBranch(branch)
}
