package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/kafka"
)

// Reloader is satisfied by *service.Service.
type Reloader interface {
	Reload(ctx context.Context) error
}

// HandleModelUpdated returns a MessageHandler that reloads the newest
// stored weights when another instance reports a change. Events published
// by instanceID itself are ignored.
func HandleModelUpdated(instanceID string, reloader Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "model-events")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ModelUpdated](value)
		if err != nil {
			logger.Error("failed to decode model event", "error", err, "key", string(key))
			return nil
		}
		if event.Source == instanceID {
			return nil
		}
		if err := reloader.Reload(ctx); err != nil {
			return fmt.Errorf("reloading after %s update from %s: %w", event.Reason, event.Source, err)
		}
		logger.Info("model reloaded",
			"source", event.Source,
			"reason", event.Reason,
			"remote_version", event.Version,
		)
		return nil
	}
}
