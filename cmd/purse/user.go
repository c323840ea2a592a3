package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/ledger"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  `Register users, set the secret question used for password recovery, and reset passwords.`,
	}

	cmd.AddCommand(registerUserCmd())
	cmd.AddCommand(secretQuestionCmd())
	cmd.AddCommand(resetPasswordCmd())
	cmd.AddCommand(listUsersCmd())

	return cmd
}

func registerUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register the --user/--password pair as a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username := viper.GetString("user")
			password := viper.GetString("password")
			if username == "" || password == "" {
				return common.NewUserError("--user and --password are required", common.ErrMissingConfig)
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.directory.Register(ctx, username, password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Registered %s", username)))
				return nil
			})
		},
	}
}

func secretQuestionCmd() *cobra.Command {
	var question, answer string

	cmd := &cobra.Command{
		Use:   "secret-question",
		Short: "Set the secret question used to reset your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, a *app, s *ledger.Session) error {
				if err := a.directory.SetSecretQuestion(ctx, s.Username, question, answer); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Secret question saved"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "secret question")
	cmd.Flags().StringVar(&answer, "answer", "", "answer (case-insensitive)")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("answer")

	return cmd
}

func resetPasswordCmd() *cobra.Command {
	var answer, newPassword string

	cmd := &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Reset a password by answering the secret question",
		Long: `Reset a forgotten password. Without --answer the secret question is shown
and the answer is read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if answer == "" {
					question, err := a.directory.SecretQuestion(ctx, username)
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), cli.FormatPrompt(question))
					reader := cli.NewNonBlockingReader(cmd.InOrStdin())
					if answer, err = reader.ReadLine(ctx); err != nil {
						return fmt.Errorf("failed to read answer: %w", err)
					}
				}

				if err := a.directory.ResetPassword(ctx, username, answer, newPassword); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Password reset for %s", username)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&answer, "answer", "", "answer to the secret question")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "new password")
	_ = cmd.MarkFlagRequired("new-password")

	return cmd
}

func listUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered usernames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				names, err := a.directory.Usernames(ctx)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No users yet. Use 'purse user register' to create one."))
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}
