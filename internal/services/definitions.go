package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// MonthFilter restricts list totals to one calendar month. Zero means all time.
type MonthFilter struct {
	Year  int
	Month int
}

func (f MonthFilter) IsZero() bool { return f.Year == 0 && f.Month == 0 }

func (f MonthFilter) Validate() error {
	if f.IsZero() {
		return nil
	}
	v := core.NewValidationError()
	if f.Year < 1970 || f.Year > 9999 {
		v.Add("year", "The year field must be a valid year.")
	}
	if f.Month < 1 || f.Month > 12 {
		v.Add("month", "The month field must be between 1 and 12.")
	}
	return v.Err()
}

func (f MonthFilter) window() core.MonthWindow {
	return core.MonthOf(time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC))
}

// DefinitionService manages income and outcome definitions for their owner.
type DefinitionService struct {
	repo    storage.DefinitionRepository
	items   storage.ItemRepository
	machine *StatusMachine
	events  EventPublisher
	lists   cache.Cache[[]core.DefinitionSummary]
	now     func() time.Time
}

// NewDefinitionService wires the service. lists and events may be nil.
func NewDefinitionService(repo storage.Repository, events EventPublisher, lists cache.Cache[[]core.DefinitionSummary]) *DefinitionService {
	return &DefinitionService{
		repo:    repo,
		items:   repo,
		machine: NewStatusMachine(repo, events),
		events:  events,
		lists:   lists,
		now:     time.Now,
	}
}

func listKey(ownerID int64, dir core.Direction) string {
	return ownerPrefix(ownerID) + string(dir)
}

func ownerPrefix(ownerID int64) string {
	return "owner:" + strconv.FormatInt(ownerID, 10) + ":"
}

// Invalidate drops the cached lists of ownerID. The Generator calls it
// through OnItemCreated.
func (s *DefinitionService) Invalidate(ownerID int64) {
	s.invalidate(ownerID)
}

func (s *DefinitionService) invalidate(ownerID int64) {
	if s.lists != nil {
		s.lists.DeletePrefix(ownerPrefix(ownerID))
	}
}

// Create validates d, stores it for p and materializes its first item.
func (s *DefinitionService) Create(ctx context.Context, p core.Principal, d core.Definition) (core.Definition, core.Item, error) {
	d.ID = 0
	d.OwnerID = p.UserID
	if err := d.Validate(); err != nil {
		return core.Definition{}, core.Item{}, err
	}

	created, first, err := s.repo.CreateDefinition(ctx, d, d.FirstItem(s.now()))
	if err != nil {
		return core.Definition{}, core.Item{}, fmt.Errorf("create definition: %w", err)
	}
	s.invalidate(p.UserID)

	publish(ctx, s.events, core.ItemEvent{
		Direction:    created.Direction,
		Action:       core.ItemCreated,
		ItemID:       first.ID,
		DefinitionID: created.ID,
	})
	return created, first, nil
}

func (s *DefinitionService) Get(ctx context.Context, p core.Principal, dir core.Direction, id int64) (core.Definition, error) {
	return s.repo.GetDefinition(ctx, dir, p.UserID, id)
}

// List returns the owner's definitions with their latest item status. With
// a non-zero filter, TotalAmount only counts items paid in that month.
func (s *DefinitionService) List(ctx context.Context, p core.Principal, dir core.Direction, f MonthFilter) ([]core.DefinitionSummary, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	key := listKey(p.UserID, dir)
	all, ok := []core.DefinitionSummary(nil), false
	if s.lists != nil {
		all, ok = s.lists.Get(key)
	}
	if !ok {
		var err error
		all, err = s.repo.ListDefinitions(ctx, dir, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("list definitions: %w", err)
		}
		if s.lists != nil {
			s.lists.Set(key, all)
		}
	}
	if f.IsZero() {
		return all, nil
	}

	totals, err := s.items.MonthTotals(ctx, dir, p.UserID, f.window())
	if err != nil {
		return nil, fmt.Errorf("month totals: %w", err)
	}
	out := make([]core.DefinitionSummary, len(all))
	for i, sum := range all {
		sum.TotalAmount = totals[sum.ID]
		out[i] = sum
	}
	return out, nil
}

// Update replaces the editable fields of a definition. Items are not touched.
func (s *DefinitionService) Update(ctx context.Context, p core.Principal, d core.Definition) (core.Definition, error) {
	current, err := s.repo.GetDefinition(ctx, d.Direction, p.UserID, d.ID)
	if err != nil {
		return core.Definition{}, err
	}
	d.OwnerID = current.OwnerID
	if d.Direction == core.Outcome && d.Status == "" {
		// Status only seeds the first item; keep validation quiet on edits.
		d.Status = core.StatusPending
	}
	if err := d.Validate(); err != nil {
		return core.Definition{}, err
	}

	updated, err := s.repo.UpdateDefinition(ctx, d)
	if err != nil {
		return core.Definition{}, fmt.Errorf("update definition: %w", err)
	}
	s.invalidate(p.UserID)
	return updated, nil
}

func (s *DefinitionService) Delete(ctx context.Context, p core.Principal, dir core.Direction, id int64) error {
	if err := s.repo.DeleteDefinition(ctx, dir, p.UserID, id); err != nil {
		return err
	}
	s.invalidate(p.UserID)
	return nil
}

// Items lists a definition's items, most recent payment date first.
func (s *DefinitionService) Items(ctx context.Context, p core.Principal, dir core.Direction, id int64) ([]core.Item, error) {
	if _, err := s.repo.GetDefinition(ctx, dir, p.UserID, id); err != nil {
		return nil, err
	}
	return s.items.ListItems(ctx, dir, id)
}

// UpdateStatus applies a status transition to the definition's latest item.
func (s *DefinitionService) UpdateStatus(ctx context.Context, p core.Principal, dir core.Direction, id int64, change StatusChange) (core.Item, error) {
	item, err := s.machine.Transition(ctx, p, dir, id, change)
	if err != nil {
		return core.Item{}, err
	}
	s.invalidate(p.UserID)
	return item, nil
}
