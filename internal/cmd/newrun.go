package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/olx/internal/git"
	"github.com/Iron-Ham/olx/internal/orchestrator"
	"github.com/Iron-Ham/olx/internal/policy"
	"github.com/Iron-Ham/olx/internal/render"
	"github.com/Iron-Ham/olx/internal/run"
	"github.com/Iron-Ham/olx/internal/tempurl"
)

func newNewRunCmd(a *app) *cobra.Command {
	var opts run.Args

	cmd := &cobra.Command{
		Use:   "new-run NAME START_DATE END_DATE",
		Short: "Create a new course run",
		Long: `Create a new course run.

Renders the course files for the run from the template set, then links
policies/NAME to the shared policies/_base baseline. Dates use the
YYYY-MM-DD format; the run ends at 23:59:59 on END_DATE.

With --create-branch the run is scaffolded on a new branch run/NAME and
committed there.`,
		Example: `  olx new-run fall2019 2019-09-01 2019-12-15
  olx new-run -b -p -s "Self-Paced" spring2020 2020-01-15 2020-05-31`,
		Args: usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name, opts.StartDate, opts.EndDate = args[0], args[1], args[2]
			return a.newRun(opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.CreateBranch, "create-branch", "b", false, "create a run/NAME branch and commit the new run on it")
	cmd.Flags().BoolVarP(&opts.Public, "public", "p", false, "make the run publicly visible")
	cmd.Flags().StringVarP(&opts.Suffix, "suffix", "s", "", "suffix appended to the run's display name")
	return cmd
}

func (a *app) newRun(args run.Args) error {
	repo := git.NewRepository(a.directory)
	templatesDir := a.cfg.Templates.ResolveTemplatesDir(a.directory)
	signer := tempurl.NewSigner(a.cfg.Storage)
	renderer := render.NewFromDir(a.directory, templatesDir,
		render.WithSigner(signer),
		render.WithLogger(a.logger.WithStage(orchestrator.StageRender)),
	)
	linker := policy.NewLinker(a.cfg.Policies.ResolveDir(a.directory))
	a.logger.Debug("collaborators ready",
		"templates_dir", templatesDir,
		"policies_dir", linker.Dir(),
		"tempurl_configured", signer.Configured(),
	)

	o := orchestrator.New(orchestrator.Dependencies{
		Branches: repo,
		Commits:  repo,
		Renderer: renderer,
		Links:    linker,
		Notifier: a.console,
	}, orchestrator.Config{
		BranchPrefix: a.cfg.Branch.Prefix,
		MainBranch:   a.cfg.Branch.Main,
	}, a.logger)

	_, err := o.Run(args)
	return err
}
