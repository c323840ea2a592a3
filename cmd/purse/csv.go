package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/importer"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
)

func csvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Export or import transactions as CSV",
		Long: `Transactions are written as ID,Date,Type,Category,Amount,Description.
Import reads the same format and records every valid row.`,
	}

	cmd.AddCommand(csvExportCmd())
	cmd.AddCommand(csvImportCmd())

	return cmd
}

func csvExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write all transactions to a CSV file",
		Long:  `Write all transactions to a CSV file. ".csv" is added when the name has no extension.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app, s *ledger.Session) error {
				filename := defaultExportName(s.Username, "transactions", time.Now())
				if len(args) == 1 {
					filename = args[0]
				}
				wallet := s.Book.Snapshot()
				written, err := a.reporter.ExportCSV(ctx, s.Username, wallet, filename)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d transaction(s) to %s",
					len(wallet.Transactions), written)))
				return nil
			})
		},
	}
}

func csvImportCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Record transactions from a CSV export",
		Long: `Record every valid row of a CSV export in file order. Invalid rows are
skipped and listed. Nothing is saved if the import is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			return withSession(cmd, func(ctx context.Context, _ *app, s *ledger.Session) error {
				out := cmd.OutOrStdout()
				handler := cli.NewInterruptHandler(out, "Import interrupted, nothing was saved.")
				ctx, stop := handler.HandleInterrupts(ctx)
				defer stop()

				var onRow func()
				var progress *cli.Progress
				if !quiet {
					progress = cli.NewProgress(out, countRows(data), "Importing transactions...")
					onRow = progress.Step
				}

				var result importer.Result
				_, err := s.Book.Update(ctx, func(w *model.Wallet) ([]model.Advisory, error) {
					var err error
					result, err = importer.New(s.Book.Recorder()).Import(bytes.NewReader(data), w, onRow)
					if err != nil {
						return nil, err
					}
					// A cancelled context discards the clone instead of committing it.
					return nil, ctx.Err()
				})
				if progress != nil {
					progress.Done()
				}
				if err != nil {
					return err
				}

				printImportResult(cmd, result, s.Book.Balance())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")

	return cmd
}

// countRows estimates data rows as lines after the header.
func countRows(data []byte) int {
	lines := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		lines++
	}
	if lines <= 1 {
		return 0
	}
	return lines - 1
}

func printImportResult(cmd *cobra.Command, result importer.Result, balance decimal.Decimal) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transaction(s): +%s income, -%s expenses",
		len(result.Imported), model.FormatAmount(result.Income), model.FormatAmount(result.Expense))))
	fmt.Fprintln(out, cli.SubtleStyle.Render("Balance: "+model.FormatAmount(balance)))
	for _, skipped := range result.Skipped {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Line %d skipped: %v", skipped.Line, skipped.Err)))
	}
}
