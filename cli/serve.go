package cli

import (
	"github.com/spf13/cobra"

	"github.com/sitesafe/safemap/routes"
	"github.com/sitesafe/safemap/scheduler"
	"github.com/sitesafe/safemap/utils"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var noCron bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the nightly compliance sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = utils.Logger.Sync() }()

			engine := routes.NewEngine(db)
			reporter := routes.NewReporter(db, engine)
			r := routes.SetupRouterWith(db, engine, reporter)

			hooks := []func(){utils.CloseRedis}
			if !noCron {
				sched, err := scheduler.New(cfg.ComplianceCron, cfg.Location(), reporter, utils.Logger)
				if err != nil {
					return err
				}
				sched.Start()
				hooks = append([]func(){sched.Stop}, hooks...)
			}

			utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
			return utils.GraceServer(":"+cfg.AppPort, r, hooks...)
		},
	}
	cmd.Flags().BoolVar(&noCron, "no-cron", false, "do not schedule the compliance sweep")
	return cmd
}
