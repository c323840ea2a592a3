package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
)

func transferCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "transfer <user> <amount>",
		Short: "Send money to another user",
		Long: `Move money from your wallet to another registered user. Both wallets get a
transaction in the "` + model.TransfersCategory + `" category and are saved together.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			amount, err := ledger.ParseAmount(args[1])
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, a *app, s *ledger.Session) error {
				receipt, err := a.coordinator.Transfer(ctx, s, target, amount, description)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Sent %s to %s",
					model.FormatAmount(receipt.Record.Amount), receipt.Record.Target)))
				fmt.Fprintln(out, cli.SubtleStyle.Render("Balance: "+model.FormatAmount(s.Book.Balance())))
				cli.PrintAdvisories(out, receipt.Advisories)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "free-text description")
	cmd.AddCommand(transferHistoryCmd())

	return cmd
}

func transferHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List transfers you sent or received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, a *app, s *ledger.Session) error {
				transfers, err := a.store.Transfers(ctx, s.Username)
				if err != nil {
					return fmt.Errorf("failed to load transfers: %w", err)
				}
				if len(transfers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No transfers yet."))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTransfers(s.Username, transfers))
				return nil
			})
		},
	}
}
