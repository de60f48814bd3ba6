package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/storage/memory"
)

func seedTask(t *testing.T, svc *TaskService, kind core.GroupKind) (core.Group, core.Task) {
	t.Helper()
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, owner, core.Group{Kind: kind, Name: "Kitchen"})
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, owner, kind, g.ID, core.Task{
		Name:          "Countertop",
		Amount:        core.Money{Cents: 75000},
		PaymentMethod: core.Savings,
		Status:        core.StatusPending,
		StartDate:     day(2024, 1, 1),
		EndDate:       core.NewDate(2024, 6, 30),
	})
	require.NoError(t, err)
	return g, task
}

func TestTaskUpdateStatusResetsStartDate(t *testing.T) {
	for _, kind := range []core.GroupKind{core.Project, core.Activity} {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			svc := NewTaskService(memory.New())
			now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
			svc.now = func() time.Time { return now }

			g, task := seedTask(t, svc, kind)

			got, err := svc.UpdateStatus(ctx, owner, kind, g.ID, task.ID, core.StatusFinished)
			require.NoError(t, err)
			assert.Equal(t, core.StatusFinished, got.Status)
			assert.Equal(t, now, got.StartDate)

			stored, err := svc.GetTask(ctx, owner, kind, g.ID, task.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StatusFinished, stored.Status)
			assert.Equal(t, now, stored.StartDate)
			assert.Equal(t, task.EndDate, stored.EndDate)

			tasks, err := svc.ListTasks(ctx, owner, kind, g.ID)
			require.NoError(t, err)
			assert.Len(t, tasks, 1, "status changes never add rows")
		})
	}
}

func TestTaskUpdateStatusInvalid(t *testing.T) {
	ctx := context.Background()
	svc := NewTaskService(memory.New())
	g, task := seedTask(t, svc, core.Project)

	_, err := svc.UpdateStatus(ctx, owner, core.Project, g.ID, task.ID, "7")
	_, ok := core.IsValidation(err)
	require.True(t, ok)

	stored, err := svc.GetTask(ctx, owner, core.Project, g.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, stored.Status)
	assert.Equal(t, day(2024, 1, 1), stored.StartDate)
}

func TestTaskScoping(t *testing.T) {
	ctx := context.Background()
	svc := NewTaskService(memory.New())
	g, task := seedTask(t, svc, core.Activity)

	_, err := svc.UpdateStatus(ctx, core.Principal{UserID: 2}, core.Activity, g.ID, task.ID, core.StatusFinished)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = svc.UpdateStatus(ctx, owner, core.Activity, g.ID+100, task.ID, core.StatusFinished)
	assert.True(t, errors.Is(err, core.ErrNotFound), "task addressed through the wrong group")

	_, err = svc.CreateTask(ctx, core.Principal{UserID: 2}, core.Activity, g.ID, task)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, svc.DeleteTask(ctx, owner, core.Activity, g.ID, task.ID))
	_, err = svc.GetTask(ctx, owner, core.Activity, g.ID, task.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}
