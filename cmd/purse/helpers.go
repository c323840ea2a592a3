package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/identity"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/notify"
	"github.com/Veraticus/purse/internal/report"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/storage"
	"github.com/Veraticus/purse/internal/transfer"
)

// store is what both backends provide.
type store interface {
	service.PersistenceStore
	Transfers(ctx context.Context, username string) ([]model.TransferRecord, error)
}

var (
	_ store = (*storage.SQLiteStorage)(nil)
	_ store = (*storage.FileStorage)(nil)
)

// app bundles the services one command invocation needs.
type app struct {
	store       store
	directory   *identity.Directory
	coordinator *transfer.Coordinator
	reporter    *report.Reporter
	publisher   *notify.Publisher
}

// initStorage opens the configured backend, migrating SQLite and recovering
// unfinished file transfers.
func initStorage(ctx context.Context, c config.StorageConfig) (store, error) {
	switch c.Backend {
	case config.BackendFiles:
		st, err := storage.NewFileStorage(ctx, c.DataDir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendSQLite:
		st, err := storage.NewSQLiteStorage(c.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", common.ErrInvalidConfig, c.Backend)
	}
}

// initNotifier always logs events and also publishes them when AMQP is configured.
// A broker that cannot be reached is logged and skipped.
func initNotifier(c config.NotifyConfig) (service.Notifier, *notify.Publisher) {
	logNotifier := notify.NewLogNotifier(slog.Default())
	if c.AMQPURL == "" {
		return logNotifier, nil
	}

	publisher, err := notify.NewPublisher(c.AMQPURL, c.Exchange, c.Queue)
	if err != nil {
		common.LogWarn("Event publishing disabled", common.Fields{"error": err.Error(), "queue": c.Queue})
		return logNotifier, nil
	}
	return notify.Multi{logNotifier, publisher}, publisher
}

func openApp(ctx context.Context) (*app, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration not loaded", common.ErrMissingConfig)
	}

	st, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	common.LogDebug("Opened storage", common.Fields{common.FieldBackend: cfg.Storage.Backend})

	notifier, publisher := initNotifier(cfg.Notify)
	directory := identity.NewDirectory(st, notifier)

	return &app{
		store:       st,
		directory:   directory,
		coordinator: transfer.NewCoordinator(directory, st),
		reporter:    report.NewReporter(st),
		publisher:   publisher,
	}, nil
}

func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// login authenticates the --user/--password pair.
func (a *app) login(ctx context.Context) (*ledger.Session, error) {
	username := viper.GetString("user")
	password := viper.GetString("password")
	if username == "" || password == "" {
		return nil, common.NewUserError("--user and --password are required", common.ErrMissingConfig)
	}
	return a.directory.Authenticate(ctx, username, password)
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			common.LogError(cerr, "Failed to close storage", nil)
		}
	}()
	return fn(ctx, a)
}

// withSession opens the app and logs the configured user in.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app, s *ledger.Session) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		session, err := a.login(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, a, session)
	})
}

// userMessage turns err into the line printed on exit.
func userMessage(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return cli.FormatError(userErr.UserMessage)
	}
	return cli.FormatError(err.Error())
}
