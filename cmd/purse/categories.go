package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories and budget limits",
		Long:  `List, add, rename, limit and delete the categories of your wallet.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(limitCategoryCmd())
	cmd.AddCommand(editCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with limits and spending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(_ context.Context, _ *app, s *ledger.Session) error {
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCategories(s.Book.Snapshot()))
				return nil
			})
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var limit string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			budget, err := ledger.ParseLimit(limit)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, _ *app, s *ledger.Session) error {
				created, err := s.Book.CreateCategory(ctx, name, budget)
				if err != nil {
					return err
				}
				if !created {
					return fmt.Errorf("%w: %q", common.ErrDuplicateCategory, name)
				}

				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q", name)))
				if budget.IsPositive() {
					fmt.Fprintf(cmd.OutOrStdout(), "  Limit: %s\n", model.FormatAmount(budget))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&limit, "limit", "l", "", "budget limit (empty or 0 for none)")

	return cmd
}

func limitCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limit <name> <amount>",
		Short: "Set the budget limit of a category (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			budget, err := ledger.ParseLimit(args[1])
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, _ *app, s *ledger.Session) error {
				advisories, err := s.Book.SetBudgetLimit(ctx, name, budget)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Limit of %q set to %s", name, model.FormatAmount(budget))))
				cli.PrintAdvisories(cmd.OutOrStdout(), advisories)
				return nil
			})
		},
	}
}

func editCategoryCmd() *cobra.Command {
	var newName, limit string

	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Rename a category and/or change its limit",
		Long: `Rename a category, moving every transaction to the new name, and optionally
change its limit. Omitted flags keep the current value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldName := args[0]

			return withSession(cmd, func(ctx context.Context, _ *app, s *ledger.Session) error {
				current, ok := s.Book.Snapshot().Categories.Get(oldName)
				if !ok {
					return fmt.Errorf("%w: %q", common.ErrCategoryNotFound, oldName)
				}

				target := oldName
				if newName != "" {
					target = newName
				}
				budget := current.BudgetLimit
				if cmd.Flags().Changed("limit") {
					parsed, err := ledger.ParseLimit(limit)
					if err != nil {
						return err
					}
					budget = parsed
				}

				renamed, err := s.Book.EditCategory(ctx, oldName, target, budget)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated category %q", target)))
				if renamed > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%d transaction(s) moved from %q", renamed, oldName)))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&newName, "name", "", "new category name")
	cmd.Flags().StringVarP(&limit, "limit", "l", "", "new budget limit (0 for none)")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category",
		Long:  `Delete a category. Its transactions move to "` + model.FallbackCategory + `".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withSession(cmd, func(ctx context.Context, _ *app, s *ledger.Session) error {
				if !force {
					count := s.Book.Snapshot().CountInCategory(name)
					prompt := fmt.Sprintf("Delete category %q and move %d transaction(s) to %q?", name, count, model.FallbackCategory)
					ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(), prompt)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled.")
						return nil
					}
				}

				moved, err := s.Book.DeleteCategory(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted category %q", name)))
				cli.PrintAdvisories(cmd.OutOrStdout(), ledger.ReassignedAdvisory(name, moved))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}

