package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// StatusStore is the persistence surface of the StatusMachine.
type StatusStore interface {
	GetDefinition(ctx context.Context, dir core.Direction, ownerID, id int64) (core.Definition, error)
	LatestItem(ctx context.Context, dir core.Direction, definitionID int64) (core.Item, error)
	InsertItem(ctx context.Context, dir core.Direction, item core.Item) (core.Item, error)
	SetItemStatus(ctx context.Context, dir core.Direction, itemID int64, status core.Status, paymentDate time.Time) error
}

// StatusChange is a requested transition of a definition's latest item.
// NewDate is required when reopening.
type StatusChange struct {
	Status  core.Status
	NewDate core.Date
}

func (c StatusChange) Validate() error {
	if !c.Status.Valid() {
		return core.FieldError("status", "The selected status is invalid.")
	}
	if c.Status == core.StatusPending && c.NewDate.IsEmpty() {
		return core.FieldError("newDate", "The new date field is required when status is pending.")
	}
	return nil
}

// StatusMachine applies status transitions to items.
type StatusMachine struct {
	store  StatusStore
	events EventPublisher
	now    func() time.Time
}

func NewStatusMachine(store StatusStore, events EventPublisher) *StatusMachine {
	return &StatusMachine{store: store, events: events, now: time.Now}
}

// Transition moves the most recent item of a definition to change.Status:
//   - finished marks the item paid now;
//   - pending leaves the item untouched and opens a new pending item dated
//     change.NewDate;
//   - any other status is stored on the item as is.
//
// It returns the item that was updated or inserted.
func (m *StatusMachine) Transition(ctx context.Context, p core.Principal, dir core.Direction, definitionID int64, change StatusChange) (core.Item, error) {
	if err := change.Validate(); err != nil {
		return core.Item{}, err
	}

	def, err := m.store.GetDefinition(ctx, dir, p.UserID, definitionID)
	if err != nil {
		return core.Item{}, fmt.Errorf("get definition: %w", err)
	}
	latest, err := m.store.LatestItem(ctx, dir, def.ID)
	if err != nil {
		return core.Item{}, fmt.Errorf("get latest item: %w", err)
	}

	var (
		result core.Item
		action core.ItemAction
	)
	switch change.Status {
	case core.StatusFinished:
		paidAt := m.now()
		if err := m.store.SetItemStatus(ctx, dir, latest.ID, core.StatusFinished, paidAt); err != nil {
			return core.Item{}, fmt.Errorf("finish item: %w", err)
		}
		result = latest
		result.Status = core.StatusFinished
		result.PaymentDate = paidAt
		action = core.ItemStatusSet

	case core.StatusPending:
		// The owning definition comes from the stored item, never from input.
		reopened, err := m.store.InsertItem(ctx, dir, core.Item{
			DefinitionID: latest.DefinitionID,
			Amount:       latest.Amount,
			Kind:         latest.Kind,
			PaymentDate:  change.NewDate.Time,
			Status:       core.StatusPending,
		})
		if err != nil {
			return core.Item{}, fmt.Errorf("reopen item: %w", err)
		}
		result = reopened
		action = core.ItemReopened

	default:
		if err := m.store.SetItemStatus(ctx, dir, latest.ID, change.Status, latest.PaymentDate); err != nil {
			return core.Item{}, fmt.Errorf("set item status: %w", err)
		}
		result = latest
		result.Status = change.Status
		action = core.ItemStatusSet
	}

	slog.InfoContext(ctx, "Item status updated",
		applog.FieldComponent, applog.ComponentStatus,
		applog.FieldOperation, applog.OpStatus,
		"direction", dir,
		"definition_id", def.ID,
		"item_id", result.ID,
		"status", result.Status,
		"action", action)

	publish(ctx, m.events, core.ItemEvent{
		Direction:    dir,
		Action:       action,
		ItemID:       result.ID,
		DefinitionID: def.ID,
	})
	return result, nil
}
