// Package memory is an in-process storage.Repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	defs   map[core.Direction]map[int64]core.Definition
	items  map[core.Direction]map[int64]core.Item
	groups map[core.GroupKind]map[int64]core.Group
	tasks  map[core.GroupKind]map[int64]core.Task
}

func New() *Store {
	return &Store{
		defs: map[core.Direction]map[int64]core.Definition{
			core.Income: {}, core.Outcome: {},
		},
		items: map[core.Direction]map[int64]core.Item{
			core.Income: {}, core.Outcome: {},
		},
		groups: map[core.GroupKind]map[int64]core.Group{
			core.Project: {}, core.Activity: {},
		},
		tasks: map[core.GroupKind]map[int64]core.Task{
			core.Project: {}, core.Activity: {},
		},
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateDefinition(_ context.Context, d core.Definition, first core.Item) (core.Definition, core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	d.ID = s.id()
	d.CreatedAt, d.UpdatedAt = now, now
	s.defs[d.Direction][d.ID] = d

	first.DefinitionID = d.ID
	first = s.insertLocked(d.Direction, first)
	return d, first, nil
}

func (s *Store) GetDefinition(_ context.Context, dir core.Direction, ownerID, id int64) (core.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[dir][id]
	if !ok || d.OwnerID != ownerID {
		return core.Definition{}, core.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDefinitions(_ context.Context, dir core.Direction, ownerID int64) ([]core.DefinitionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.DefinitionSummary
	for _, d := range s.defs[dir] {
		if d.OwnerID != ownerID {
			continue
		}
		sum := core.DefinitionSummary{Definition: d}
		items := s.itemsLocked(dir, d.ID)
		if len(items) > 0 {
			sum.LatestStatus = items[0].Status
			sum.LatestPaymentDate = items[0].PaymentDate
		}
		for _, it := range items {
			sum.TotalAmount = sum.TotalAmount.Add(it.Amount)
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UpdateDefinition(_ context.Context, d core.Definition) (core.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.defs[d.Direction][d.ID]
	if !ok || cur.OwnerID != d.OwnerID {
		return core.Definition{}, core.ErrNotFound
	}
	d.CreatedAt = cur.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	s.defs[d.Direction][d.ID] = d
	return d, nil
}

func (s *Store) DeleteDefinition(_ context.Context, dir core.Direction, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[dir][id]
	if !ok || d.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.defs[dir], id)
	for itemID, it := range s.items[dir] {
		if it.DefinitionID == id {
			delete(s.items[dir], itemID)
		}
	}
	return nil
}

func (s *Store) ListDynamic(_ context.Context, dir core.Direction) ([]core.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Definition
	for _, d := range s.defs[dir] {
		if d.Kind == core.Dynamic {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// itemsLocked returns a definition's items, most recent payment date first.
func (s *Store) itemsLocked(dir core.Direction, definitionID int64) []core.Item {
	var out []core.Item
	for _, it := range s.items[dir] {
		if it.DefinitionID == definitionID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.After(out[j].PaymentDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) insertLocked(dir core.Direction, it core.Item) core.Item {
	it.ID = s.id()
	it.PaymentDate = it.PaymentDate.UTC()
	it.CreatedAt = time.Now().UTC()
	s.items[dir][it.ID] = it
	return it
}

func (s *Store) ListItems(_ context.Context, dir core.Direction, definitionID int64) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked(dir, definitionID), nil
}

func (s *Store) MonthTotals(_ context.Context, dir core.Direction, ownerID int64, w core.MonthWindow) (map[int64]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[int64]core.Money)
	for _, it := range s.items[dir] {
		d, ok := s.defs[dir][it.DefinitionID]
		if !ok || d.OwnerID != ownerID || !w.Contains(it.PaymentDate) {
			continue
		}
		totals[d.ID] = totals[d.ID].Add(it.Amount)
	}
	return totals, nil
}

func (s *Store) LatestItem(_ context.Context, dir core.Direction, definitionID int64) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.itemsLocked(dir, definitionID)
	if len(items) == 0 {
		return core.Item{}, core.ErrNotFound
	}
	return items[0], nil
}

func (s *Store) InsertItem(_ context.Context, dir core.Direction, item core.Item) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[dir][item.DefinitionID]; !ok {
		return core.Item{}, core.ErrNotFound
	}
	return s.insertLocked(dir, item), nil
}

func (s *Store) InsertItemIfMonthFree(_ context.Context, dir core.Direction, item core.Item, w core.MonthWindow) (core.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[dir][item.DefinitionID]; !ok {
		return core.Item{}, false, core.ErrNotFound
	}
	for _, it := range s.items[dir] {
		if it.DefinitionID == item.DefinitionID && w.Contains(it.PaymentDate) {
			return item, false, nil
		}
	}
	return s.insertLocked(dir, item), true, nil
}

func (s *Store) SetItemStatus(_ context.Context, dir core.Direction, itemID int64, status core.Status, paymentDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[dir][itemID]
	if !ok {
		return core.ErrNotFound
	}
	it.Status = status
	it.PaymentDate = paymentDate.UTC()
	it.ExportedAt = time.Time{}
	s.items[dir][itemID] = it
	return nil
}

func (s *Store) ledgerLocked(dir core.Direction, it core.Item) core.LedgerEntry {
	d := s.defs[dir][it.DefinitionID]
	return core.LedgerEntry{
		Direction:      dir,
		ItemID:         it.ID,
		DefinitionID:   d.ID,
		OwnerID:        d.OwnerID,
		DefinitionName: d.Name,
		Amount:         it.Amount,
		PaymentDate:    it.PaymentDate,
		Status:         it.Status,
		PaymentMethod:  d.PaymentMethod,
		ExportedAt:     it.ExportedAt,
	}
}

func (s *Store) GetLedgerEntry(_ context.Context, dir core.Direction, itemID int64) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[dir][itemID]
	if !ok {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	return s.ledgerLocked(dir, it), nil
}

func (s *Store) ListUnexported(_ context.Context, dir core.Direction, limit int) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEntry
	for _, it := range s.items[dir] {
		if it.ExportedAt.IsZero() {
			out = append(out, s.ledgerLocked(dir, it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, dir core.Direction, itemID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[dir][itemID]
	if !ok {
		return core.ErrNotFound
	}
	it.ExportedAt = at.UTC()
	s.items[dir][itemID] = it
	return nil
}

func (s *Store) CreateGroup(_ context.Context, g core.Group) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	g.CreatedAt = time.Now().UTC()
	s.groups[g.Kind][g.ID] = g
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, kind core.GroupKind, ownerID, id int64) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[kind][id]
	if !ok || g.OwnerID != ownerID {
		return core.Group{}, core.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGroups(_ context.Context, kind core.GroupKind, ownerID int64) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Group
	for _, g := range s.groups[kind] {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) DeleteGroup(_ context.Context, kind core.GroupKind, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[kind][id]
	if !ok || g.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.groups[kind], id)
	for taskID, t := range s.tasks[kind] {
		if t.GroupID == id {
			delete(s.tasks[kind], taskID)
		}
	}
	return nil
}

func (s *Store) CreateTask(_ context.Context, kind core.GroupKind, t core.Task) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[kind][t.GroupID]; !ok {
		return core.Task{}, core.ErrNotFound
	}
	t.ID = s.id()
	t.CreatedAt = time.Now().UTC()
	s.tasks[kind][t.ID] = t
	return t, nil
}

func (s *Store) ListTasks(_ context.Context, kind core.GroupKind, groupID int64) ([]core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Task
	for _, t := range s.tasks[kind] {
		if t.GroupID == groupID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTask(_ context.Context, kind core.GroupKind, ownerID, id int64) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[kind][id]
	if !ok {
		return core.Task{}, core.ErrNotFound
	}
	if g, ok := s.groups[kind][t.GroupID]; !ok || g.OwnerID != ownerID {
		return core.Task{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) UpdateTaskStatus(_ context.Context, kind core.GroupKind, id int64, status core.Status, startDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[kind][id]
	if !ok {
		return core.ErrNotFound
	}
	t.Status = status
	t.StartDate = startDate.UTC()
	s.tasks[kind][id] = t
	return nil
}

func (s *Store) DeleteTask(_ context.Context, kind core.GroupKind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[kind][id]; !ok {
		return core.ErrNotFound
	}
	delete(s.tasks[kind], id)
	return nil
}

var _ storage.Repository = (*Store)(nil)
