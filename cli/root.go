// Package cli is the safemap command line: the HTTP server and its maintenance commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sitesafe/safemap/config"
	"github.com/sitesafe/safemap/utils"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "safemap",
		Short:         "SafeMap - construction site safety checklists",
		Long:          "Serves the daily safety checklist API and runs its maintenance tasks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (json or yaml); overrides CONFIG_FILE")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAdminPasswordCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// bootstrap loads and validates config, starts logging and opens the migrated database.
func bootstrap(opts *RootOptions) (config.AppConfig, *gorm.DB, error) {
	if opts.ConfigFile != "" {
		config.UseFile(opts.ConfigFile)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := config.InitDatabase()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}
