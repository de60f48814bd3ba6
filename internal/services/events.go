package services

import (
	"context"
	"log/slog"

	"finanzas/internal/core"
)

// EventPublisher announces item changes. Implementations must be safe for
// concurrent use.
type EventPublisher interface {
	PublishItemEvent(ctx context.Context, ev core.ItemEvent) error
}

// publish never fails the caller: the item is already stored and the
// ledger sweep picks up anything a lost event missed.
func publish(ctx context.Context, p EventPublisher, ev core.ItemEvent) {
	if p == nil {
		return
	}
	if err := p.PublishItemEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish item event",
			"direction", ev.Direction,
			"action", ev.Action,
			"item_id", ev.ItemID,
			"error", err)
	}
}
