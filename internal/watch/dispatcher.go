package watch

import (
	"context"
	"log/slog"
)

// Dispatcher receives notification payloads produced by the detector.
// Delivery mechanics live behind this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, result Result) error
}

// LogDispatcher writes payloads to the structured log. It is the default
// sink when no delivery backend is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, result Result) error {
	attrs := []any{
		slog.Int64("recipient_id", result.Recipient.RecipientID),
		slog.Int("changed", len(result.Changed)),
	}

	if result.Channels.Email != "" {
		attrs = append(attrs, slog.String("email", result.Channels.Email))
	}

	if result.Channels.Push != "" {
		attrs = append(attrs, slog.String("push", result.Channels.Push))
	}

	slog.Info("Watchlist change detected", attrs...)

	return nil
}
