package notifier

import "context"

// Notifier defines the interface for delivering export-ready notifications.
// Real email delivery is an external concern; the gateway only needs a sink.
type Notifier interface {
	ExportReady(ctx context.Context, email, downloadURL string) error
}
