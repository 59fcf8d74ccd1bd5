package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/routes"
	"github.com/sitesafe/safemap/utils"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DBDriver)
			return nil
		},
	}
}

// NewAdminPasswordCommand creates the admin-password command. The password comes from
// --password or the first line of stdin.
func NewAdminPasswordCommand(rootOpts *RootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "admin-password",
		Short: "Set the admin password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given: use --password or pipe it on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if err := utils.ValidatePassword(password); err != nil {
				return err
			}

			_, db, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			hash, err := utils.HashPassword(password)
			if err != nil {
				return err
			}
			if err := repository.NewSystemConfigRepository(db).Set(cmd.Context(), repository.KeyAdminPassword, hash); err != nil {
				return fmt.Errorf("store admin password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "admin password updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new admin password (at least 8 characters)")
	return cmd
}

// NewReportCommand creates the report command, which prints today's compliance report.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var warm bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the compliance report for all active sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			reporter := routes.NewReporter(db, routes.NewEngine(db))
			build := reporter.Build
			if warm {
				build = reporter.Warm
			}
			report, err := build(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", false, "also store the report in the cache")
	return cmd
}
