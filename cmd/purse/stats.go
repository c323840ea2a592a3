package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/report"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show wallet statistics",
		Long:  `Totals, per-category budgets, category selections and date windows, on screen or exported to a text file.`,
	}

	cmd.AddCommand(statsSummaryCmd())
	cmd.AddCommand(statsDetailCmd())
	cmd.AddCommand(statsCategoriesCmd())
	cmd.AddCommand(statsPeriodCmd())
	cmd.AddCommand(statsExportCmd())

	return cmd
}

func statsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Total income, expenses and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, _ *app, s *ledger.Session) error {
				summary := report.Summarize(s.Book.Snapshot())
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(s.Username, summary))
				cli.PrintAdvisories(cmd.OutOrStdout(), summary.Health)
				return nil
			})
		},
	}
}

func statsDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail",
		Short: "Income by category and budget usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, _ *app, s *ledger.Session) error {
				detail := report.Detail(s.Book.Snapshot())
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.RenderSummary(s.Username, detail.Summary))
				fmt.Fprintln(out, cli.RenderDetail(detail))
				cli.PrintAdvisories(out, detail.Health)
				return nil
			})
		},
	}
}

func statsCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories <name>...",
		Short: "Income and expenses for selected categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, _ *app, s *ledger.Session) error {
				selection, err := report.ForCategories(s.Book.Snapshot(), args)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSelection(selection))
				return nil
			})
		},
	}
}

func statsPeriodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "period <start> <end>",
		Short: "Totals between two dates (YYYY-MM-DD, inclusive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, _ *app, s *ledger.Session) error {
				period, err := report.ForRange(s.Book.Snapshot(), args[0], args[1])
				if err != nil {
					return err
				}
				if period.Empty {
					fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No transactions in this period."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderPeriod(period))
				return nil
			})
		},
	}
}

func statsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the detailed report to a text file",
		Long:  `Write the detailed report to a text file. ".txt" is added when the name has no extension.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app, s *ledger.Session) error {
				filename := defaultExportName(s.Username, "stats", time.Now())
				if len(args) == 1 {
					filename = args[0]
				}
				written, err := a.reporter.ExportText(ctx, s.Username, s.Book.Snapshot(), filename)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Statistics exported to "+written))
				return nil
			})
		},
	}
}

func defaultExportName(username, kind string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", username, kind, now.Format("20060102"))
}
