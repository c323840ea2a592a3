package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
)

var (
	cfgFile string
	version = "dev"
	cfg     *config.Config
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purse",
		Short: "👛 Personal finance ledger with budget alerts",
		Long: `purse keeps a wallet per user: income and expenses by category,
budget limits with warnings, transfers between users and statistics exports.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/purse/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("backend", config.BackendSQLite, "storage backend (sqlite, files)")
	flags.String("data", "", "database file (sqlite) or data directory (files)")
	flags.StringP("user", "u", "", "username (env PURSE_USER)")
	flags.StringP("password", "p", "", "password (env PURSE_PASSWORD)")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("storage.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("user", flags.Lookup("user"))
	_ = viper.BindPFlag("password", flags.Lookup("password"))

	// Add commands
	cmd.AddCommand(userCmd())
	cmd.AddCommand(incomeCmd())
	cmd.AddCommand(expenseCmd())
	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(transferCmd())
	cmd.AddCommand(statsCmd())
	cmd.AddCommand(csvCmd())
	cmd.AddCommand(alertsCmd())
	cmd.AddCommand(backupCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	v := viper.GetViper()
	if err := config.Configure(v, cfgFile); err != nil {
		return err
	}

	// --data points at whichever location the selected backend uses.
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		key := "storage.path"
		if strings.EqualFold(v.GetString("storage.backend"), config.BackendFiles) {
			key = "storage.data_dir"
		}
		v.Set(key, data)
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := setupLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging(c config.LoggingConfig) error {
	level, err := common.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	return common.SetupLogger(level, c.Format)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "purse version %s\n", version)
		},
	}
}
