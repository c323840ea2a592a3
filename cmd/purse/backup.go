package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/storage"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [file]",
		Short: "Copy the SQLite database to a backup file",
		Long: `Write a consistent, integrity-checked copy of the SQLite database.
Without a file name the backup goes to backups/ next to the database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sqlite, ok := a.store.(*storage.SQLiteStorage)
				if !ok {
					return common.NewUserError("backup needs the sqlite backend; copy the data directory instead",
						fmt.Errorf("%w: backend %q", common.ErrInvalidConfig, cfg.Storage.Backend))
				}

				dest := sqlite.DefaultBackupPath(time.Now())
				if len(args) == 1 {
					dest = args[0]
				}
				info, err := sqlite.Backup(ctx, dest)
				if err != nil {
					return err
				}

				details := fmt.Sprintf("Path: %s\nSize: %d bytes\nUsers: %d\nTransactions: %d\nTransfers: %d\nSchema version: %d",
					info.Path, info.FileSize, info.Users, info.Transactions, info.Transfers, info.SchemaVersion)
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.SuccessIcon+" Backup created", details))
				return nil
			})
		},
	}
}
