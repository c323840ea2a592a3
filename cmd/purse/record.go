package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
)

type recordFunc func(b *ledger.Book, ctx context.Context, amount decimal.Decimal, category, description string) (model.Transaction, []model.Advisory, error)

func incomeCmd() *cobra.Command {
	return recordCmd("income", "Record income", (*ledger.Book).RecordIncome)
}

func expenseCmd() *cobra.Command {
	return recordCmd("expense", "Record an expense", (*ledger.Book).RecordExpense)
}

func recordCmd(use, short string, record recordFunc) *cobra.Command {
	var category, description string

	cmd := &cobra.Command{
		Use:   use + " <amount>",
		Short: short,
		Long: short + ` in a category. Amounts accept a dot or a comma as decimal
separator and are rounded to cents.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := ledger.ParseAmount(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, _ *app, s *ledger.Session) error {
				txn, advisories, err := record(s.Book, ctx, amount, category, description)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded %s of %s in %s",
					use, model.FormatAmount(txn.Amount), txn.Category)))
				fmt.Fprintln(out, cli.SubtleStyle.Render("Balance: "+model.FormatAmount(s.Book.Balance())))
				cli.PrintAdvisories(out, advisories)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", model.FallbackCategory, "category name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "free-text description")

	return cmd
}
