package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// Reporter writes reports through a service.TextWriter.
type Reporter struct {
	writer service.TextWriter
}

// NewReporter creates a reporter that writes through w.
func NewReporter(w service.TextWriter) *Reporter {
	return &Reporter{writer: w}
}

// ExportText writes the detailed report for username to filename, adding ".txt"
// when the name has no extension.
func (r *Reporter) ExportText(ctx context.Context, username string, w *model.Wallet, filename string) (string, error) {
	filename = withExtension(filename, ".txt")
	if err := r.writer.WriteTextFile(ctx, filename, FormatText(username, Detail(w))); err != nil {
		return "", fmt.Errorf("failed to export statistics: %w", err)
	}
	common.LogInfo("Exported statistics", common.Fields{common.FieldUser: username, "file": filename})
	return filename, nil
}

// ExportCSV writes all transactions to filename, adding ".csv" when the name has no extension.
func (r *Reporter) ExportCSV(ctx context.Context, username string, w *model.Wallet, filename string) (string, error) {
	filename = withExtension(filename, ".csv")
	content, err := CSV(w)
	if err != nil {
		return "", err
	}
	if err := r.writer.WriteTextFile(ctx, filename, content); err != nil {
		return "", fmt.Errorf("failed to export transactions: %w", err)
	}
	common.LogInfo("Exported transactions", common.Fields{
		common.FieldUser: username,
		"file":           filename,
		"count":          len(w.Transactions),
	})
	return filename, nil
}

func withExtension(filename, ext string) string {
	filename = strings.TrimSpace(filename)
	if filepath.Ext(filename) == "" {
		return filename + ext
	}
	return filename
}
