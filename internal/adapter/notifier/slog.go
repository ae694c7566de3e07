package notifier

import (
	"context"
	"log/slog"
)

// SlogNotifier is an implementation of Notifier that records the send in the
// service log instead of delivering email.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier creates a new SlogNotifier.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

// ExportReady logs the download link that would have been emailed.
func (n *SlogNotifier) ExportReady(ctx context.Context, email, downloadURL string) error {
	n.logger.Info("export ready notification", "email", email, "download_url", downloadURL)
	return nil
}
