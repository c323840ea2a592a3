package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/alerts"
	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Check budgets and balance for warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, _ *app, s *ledger.Session) error {
				advisories := alerts.Check(s.Book.Snapshot())
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle("Alerts for "+s.Username))
				cli.PrintAdvisories(cmd.OutOrStdout(), advisories)

				if model.HasAdvisory(advisories, model.AdvisoryNoAlerts) {
					return nil
				}
				s.Book.NotifyEvent(ctx, service.Event{
					Type:       service.EventAdvisory,
					Username:   s.Username,
					Advisories: advisories,
					Timestamp:  time.Now(),
				})
				return nil
			})
		},
	}
}
