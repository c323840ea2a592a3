package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// LogNotifier writes every event to a slog logger.
type LogNotifier struct {
	logger *slog.Logger
}

var _ service.Notifier = (*LogNotifier)(nil)

// NewLogNotifier logs to logger, or to slog.Default when logger is nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs one record per advisory, at a level matching its severity,
// and one record for a transfer.
func (n *LogNotifier) Notify(ctx context.Context, event service.Event) error {
	if event.Transfer != nil {
		n.logger.InfoContext(ctx, "Transfer completed",
			common.FieldUser, event.Username,
			common.FieldTransfer, event.Transfer.ID,
			"source", event.Transfer.Source,
			"target", event.Transfer.Target,
			common.FieldAmount, model.FormatAmount(event.Transfer.Amount))
	}
	for _, a := range event.Advisories {
		n.logger.Log(ctx, severityLevel(a.Severity), a.Message,
			common.FieldUser, event.Username,
			"code", string(a.Code),
			common.FieldCategory, a.Category)
	}
	return nil
}

func severityLevel(s model.Severity) slog.Level {
	switch s {
	case model.SeverityCritical:
		return slog.LevelError
	case model.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Multi fans an event out to several notifiers. Every notifier is called;
// the failures are joined.
type Multi []service.Notifier

// Notify implements service.Notifier.
func (m Multi) Notify(ctx context.Context, event service.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
