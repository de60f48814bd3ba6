package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
)

func TestGeneratorFirstMaterialization(t *testing.T) {
	store := newGenStore()
	store.add(dynamic(1, core.Income, core.Monthly, core.NewDate(2024, 1, 1)))
	store.add(dynamic(2, core.Outcome, core.Quarterly, core.NewDate(2024, 1, 1)))

	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	res, err := NewGenerator(store, nil, 2).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	income := store.itemsOf(1)
	require.Len(t, income, 1)
	assert.Equal(t, now, income[0].PaymentDate)
	assert.Equal(t, core.StatusFinished, income[0].Status)
	assert.Equal(t, int64(10000), income[0].Amount.Cents)
	assert.Equal(t, core.Dynamic, income[0].Kind)

	outcome := store.itemsOf(2)
	require.Len(t, outcome, 1)
	assert.Equal(t, core.StatusPending, outcome[0].Status)
}

func TestGeneratorMonthlyScenario(t *testing.T) {
	store := newGenStore()
	store.add(dynamic(1, core.Income, core.Monthly, core.NewDate(2024, 1, 15)),
		core.Item{PaymentDate: day(2024, 1, 15), Status: core.StatusFinished, Amount: core.Money{Cents: 10000}})

	g := NewGenerator(store, nil, 1)

	res, err := g.Run(context.Background(), day(2024, 2, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	items := store.itemsOf(1)
	require.Len(t, items, 2)
	assert.Equal(t, day(2024, 2, 20), items[0].PaymentDate)

	res, err = g.Run(context.Background(), day(2024, 2, 25))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created, "second run in the same month must not create another item")
	assert.Len(t, store.itemsOf(1), 2)
}

func TestGeneratorDueness(t *testing.T) {
	tests := []struct {
		name   string
		freq   core.Frequency
		latest time.Time
		extra  []time.Time
		now    time.Time
		want   int
	}{
		{"quarterly too early", core.Quarterly, day(2024, 1, 15), nil, day(2024, 2, 20), 0},
		{"quarterly due", core.Quarterly, day(2024, 1, 15), nil, day(2024, 4, 2), 1},
		{"semi-annual due", core.SemiAnnual, day(2023, 8, 10), nil, day(2024, 2, 1), 1},
		{"annual due", core.Annual, day(2023, 3, 31), nil, day(2024, 3, 1), 1},
		{"annual early", core.Annual, day(2023, 3, 31), nil, day(2024, 2, 28), 0},
		{"month already covered", core.Monthly, day(2024, 1, 15), []time.Time{day(2024, 2, 1)}, day(2024, 2, 20), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newGenStore()
			items := []core.Item{{PaymentDate: tt.latest, Status: core.StatusFinished}}
			for _, e := range tt.extra {
				items = append(items, core.Item{PaymentDate: e, Status: core.StatusPending})
			}
			store.add(dynamic(1, core.Outcome, tt.freq, core.NewDate(2023, 1, 1)), items...)

			res, err := NewGenerator(store, nil, 1).Run(context.Background(), tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Created)
		})
	}
}

func TestGeneratorSkips(t *testing.T) {
	now := day(2024, 5, 15)
	store := newGenStore()

	unique := dynamic(1, core.Income, core.Unique, core.NewDate(2024, 1, 1))
	ended := dynamic(2, core.Income, core.Monthly, core.NewDate(2023, 1, 1))
	ended.EndDate = core.NewDate(2024, 4, 30)
	future := dynamic(3, core.Outcome, core.Monthly, core.NewDate(2024, 6, 1))
	fixed := dynamic(4, core.Outcome, core.Monthly, core.NewDate(2024, 1, 1))
	fixed.Kind = core.Fixed

	store.add(unique, core.Item{PaymentDate: day(2024, 1, 1)})
	store.add(ended)
	store.add(future)
	store.add(fixed)

	res, err := NewGenerator(store, nil, 4).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 4, res.Skipped)
	for id := int64(1); id <= 4; id++ {
		if id == 1 {
			assert.Len(t, store.itemsOf(id), 1)
			continue
		}
		assert.Empty(t, store.itemsOf(id), "definition %d", id)
	}
}

func TestGeneratorFailureIsolation(t *testing.T) {
	store := newGenStore()
	store.add(dynamic(1, core.Income, core.Monthly, core.NewDate(2024, 1, 1)))
	store.add(dynamic(2, core.Income, core.Monthly, core.NewDate(2024, 1, 1)))
	store.add(dynamic(3, core.Income, core.Monthly, core.NewDate(2024, 1, 1)))
	store.failList[2] = true

	res, err := NewGenerator(store, nil, 3).Run(context.Background(), day(2024, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, store.itemsOf(1), 1)
	assert.Len(t, store.itemsOf(3), 1)
}

func TestGeneratorListFailureKeepsOtherDirection(t *testing.T) {
	store := newGenStore()
	store.add(dynamic(1, core.Outcome, core.Monthly, core.NewDate(2024, 1, 1)))
	store.listErr[core.Income] = errors.New("db down")

	res, err := NewGenerator(store, nil, 1).Run(context.Background(), day(2024, 3, 3))
	require.Error(t, err)
	assert.Equal(t, 1, res.Created)
}

func TestGeneratorPublishesEvents(t *testing.T) {
	store := newGenStore()
	store.add(dynamic(1, core.Outcome, core.Monthly, core.NewDate(2024, 1, 1)))
	pub := &recordingPublisher{err: errors.New("broker unavailable")}

	res, err := NewGenerator(store, pub, 1).Run(context.Background(), day(2024, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created, "publish failures must not fail generation")
	assert.Equal(t, []core.ItemAction{core.ItemGenerated}, pub.actions())
	assert.Equal(t, int64(1), pub.events[0].DefinitionID)
	assert.Equal(t, core.Outcome, pub.events[0].Direction)
}

func TestGeneratorRunsInNonUTCLocation(t *testing.T) {
	ast := time.FixedZone("AST", -4*3600)
	store := newGenStore()
	store.add(dynamic(1, core.Outcome, core.Monthly, core.NewDate(2024, 2, 1)),
		core.Item{PaymentDate: day(2024, 2, 1), Status: core.StatusFinished})
	g := NewGenerator(store, nil, 1)

	runs := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2024, 3, 1, 9, 0, 0, 0, ast), 1},
		{time.Date(2024, 3, 15, 9, 0, 0, 0, ast), 0},
		{time.Date(2024, 4, 15, 9, 0, 0, 0, ast), 1},
	}
	for _, r := range runs {
		res, err := g.Run(context.Background(), r.now)
		require.NoError(t, err)
		assert.Equal(t, r.want, res.Created, "run at %s", r.now)
	}

	items := store.itemsOf(1)
	require.Len(t, items, 3)
	assert.Equal(t, time.UTC, items[0].PaymentDate.Location())
	assert.Equal(t, time.April, items[0].PaymentDate.Month())
	assert.Equal(t, time.March, items[1].PaymentDate.Month())
}
