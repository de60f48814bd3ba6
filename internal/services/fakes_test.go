package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"finanzas/internal/core"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.ItemEvent
	err    error
}

func (p *recordingPublisher) PublishItemEvent(_ context.Context, ev core.ItemEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) actions() []core.ItemAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.ItemAction, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Action
	}
	return out
}

// genStore is a GeneratorStore with per-definition failure injection.
type genStore struct {
	mu       sync.Mutex
	defs     map[core.Direction][]core.Definition
	items    map[int64][]core.Item
	failList map[int64]bool
	listErr  map[core.Direction]error
	nextID   int64
}

func newGenStore() *genStore {
	return &genStore{
		defs:     map[core.Direction][]core.Definition{},
		items:    map[int64][]core.Item{},
		failList: map[int64]bool{},
		listErr:  map[core.Direction]error{},
	}
}

func (s *genStore) add(d core.Definition, items ...core.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[d.Direction] = append(s.defs[d.Direction], d)
	for _, it := range items {
		s.nextID++
		it.ID = s.nextID
		it.DefinitionID = d.ID
		s.items[d.ID] = append(s.items[d.ID], it)
	}
}

func (s *genStore) ListDynamic(_ context.Context, dir core.Direction) ([]core.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listErr[dir]; err != nil {
		return nil, err
	}
	return append([]core.Definition(nil), s.defs[dir]...), nil
}

func (s *genStore) ListItems(_ context.Context, _ core.Direction, definitionID int64) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList[definitionID] {
		return nil, errors.New("boom")
	}
	out := append([]core.Item(nil), s.items[definitionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out, nil
}

func (s *genStore) InsertItemIfMonthFree(_ context.Context, _ core.Direction, item core.Item, w core.MonthWindow) (core.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items[item.DefinitionID] {
		if w.Contains(it.PaymentDate) {
			return item, false, nil
		}
	}
	s.nextID++
	item.ID = s.nextID
	s.items[item.DefinitionID] = append(s.items[item.DefinitionID], item)
	return item, true, nil
}

func (s *genStore) itemsOf(id int64) []core.Item {
	items, _ := s.ListItems(context.Background(), core.Income, id)
	return items
}

func dynamic(id int64, dir core.Direction, f core.Frequency, start core.Date) core.Definition {
	return core.Definition{
		ID:        id,
		Direction: dir,
		OwnerID:   1,
		Name:      "def",
		Amount:    core.Money{Cents: 10000},
		Frequency: f,
		Kind:      core.Dynamic,
		StartDate: start,
	}
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}
