package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// GeneratorStore is the persistence surface the Generator needs.
type GeneratorStore interface {
	ListDynamic(ctx context.Context, dir core.Direction) ([]core.Definition, error)
	ListItems(ctx context.Context, dir core.Direction, definitionID int64) ([]core.Item, error)
	InsertItemIfMonthFree(ctx context.Context, dir core.Direction, item core.Item, w core.MonthWindow) (core.Item, bool, error)
}

var _ GeneratorStore = (storage.Repository)(nil)

// GenerationResult summarizes one Generator pass.
type GenerationResult struct {
	Checked int
	Created int
	Skipped int
	Failed  int
}

// Generator materializes the current month's item of every due dynamic
// income and outcome definition.
type Generator struct {
	store       GeneratorStore
	events      EventPublisher
	concurrency int
	onCreated   func(ownerID int64)
}

// NewGenerator builds a Generator. concurrency below 1 processes
// definitions one at a time; events may be nil.
func NewGenerator(store GeneratorStore, events EventPublisher, concurrency int) *Generator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Generator{store: store, events: events, concurrency: concurrency}
}

// OnItemCreated registers fn to run with the owner of every item the
// Generator inserts. Set it before the first Run.
func (g *Generator) OnItemCreated(fn func(ownerID int64)) {
	g.onCreated = fn
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
)

// Run performs one pass at instant now. A failure on one definition is
// logged and counted; only listing failures are returned, and a listing
// failure for one direction does not stop the other.
//
// Payment dates are stored as UTC calendar days, so months are evaluated
// in UTC whatever the location of now.
func (g *Generator) Run(ctx context.Context, now time.Time) (GenerationResult, error) {
	if g.store == nil {
		return GenerationResult{}, fmt.Errorf("generator not properly initialized")
	}
	now = now.UTC()

	var (
		checked, created, skipped, failed atomic.Int64
		listErrs                          []error
	)

	for _, dir := range []core.Direction{core.Income, core.Outcome} {
		defs, err := g.store.ListDynamic(ctx, dir)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list dynamic definitions", "direction", dir, "error", err)
			listErrs = append(listErrs, fmt.Errorf("list dynamic %s: %w", dir, err))
			continue
		}

		slog.InfoContext(ctx, "Processing dynamic definitions",
			"direction", dir,
			"total", len(defs),
			"processing_date", now.Format("2006-01-02"))

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.concurrency)
		for _, d := range defs {
			eg.Go(func() error {
				checked.Add(1)
				res, err := g.process(egCtx, dir, d, now)
				switch {
				case err != nil:
					failed.Add(1)
					slog.ErrorContext(egCtx, "Failed to process definition",
						"direction", dir,
						"definition_id", d.ID,
						"error", err)
				case res == outcomeCreated:
					created.Add(1)
				default:
					skipped.Add(1)
				}
				return nil
			})
		}
		_ = eg.Wait()
	}

	result := GenerationResult{
		Checked: int(checked.Load()),
		Created: int(created.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	slog.InfoContext(ctx, "Recurring generation complete",
		applog.FieldComponent, applog.ComponentGenerator,
		applog.FieldOperation, applog.OpGenerate,
		"checked", result.Checked,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, errors.Join(listErrs...)
}

func (g *Generator) process(ctx context.Context, dir core.Direction, d core.Definition, now time.Time) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcomeSkipped, err
	}
	if d.Kind != core.Dynamic {
		return outcomeSkipped, nil
	}
	if !d.Recurring() {
		slog.WarnContext(ctx, "Dynamic definition without recurring interval, skipping",
			"direction", dir,
			"definition_id", d.ID,
			"frequency", d.Frequency.String())
		return outcomeSkipped, nil
	}
	if !d.ActiveAt(now) {
		return outcomeSkipped, nil
	}

	checker, err := GetDuenessChecker(d.Frequency)
	if err != nil {
		return outcomeSkipped, err
	}

	items, err := g.store.ListItems(ctx, dir, d.ID)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("list items: %w", err)
	}

	window := core.MonthOf(now)
	if len(items) > 0 {
		if !checker.IsDue(items[0].PaymentDate, now) {
			return outcomeSkipped, nil
		}
		for _, it := range items {
			if window.Contains(it.PaymentDate) {
				return outcomeSkipped, nil
			}
		}
	}

	item := core.Item{
		DefinitionID: d.ID,
		Amount:       d.Amount,
		PaymentDate:  now,
		Status:       dir.GeneratedStatus(),
		Kind:         d.Kind,
	}
	// The month check is repeated inside the insert transaction.
	created, ok, err := g.store.InsertItemIfMonthFree(ctx, dir, item, window)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("insert item: %w", err)
	}
	if !ok {
		return outcomeSkipped, nil
	}

	slog.InfoContext(ctx, "Created item from dynamic definition",
		"direction", dir,
		"definition_id", d.ID,
		"item_id", created.ID,
		"amount_cents", created.Amount.Cents,
		"status", created.Status,
		"frequency", d.Frequency.String())

	if g.onCreated != nil {
		g.onCreated(d.OwnerID)
	}
	publish(ctx, g.events, core.ItemEvent{
		Direction:    dir,
		Action:       core.ItemGenerated,
		ItemID:       created.ID,
		DefinitionID: d.ID,
	})
	return outcomeCreated, nil
}
