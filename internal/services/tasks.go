package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// TaskService manages projects, activities and their tasks.
type TaskService struct {
	repo storage.GroupRepository
	now  func() time.Time
}

func NewTaskService(repo storage.GroupRepository) *TaskService {
	return &TaskService{repo: repo, now: time.Now}
}

func (s *TaskService) CreateGroup(ctx context.Context, p core.Principal, g core.Group) (core.Group, error) {
	g.ID = 0
	g.OwnerID = p.UserID
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	created, err := s.repo.CreateGroup(ctx, g)
	if err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	return created, nil
}

func (s *TaskService) GetGroup(ctx context.Context, p core.Principal, kind core.GroupKind, id int64) (core.Group, error) {
	return s.repo.GetGroup(ctx, kind, p.UserID, id)
}

func (s *TaskService) ListGroups(ctx context.Context, p core.Principal, kind core.GroupKind) ([]core.Group, error) {
	return s.repo.ListGroups(ctx, kind, p.UserID)
}

func (s *TaskService) DeleteGroup(ctx context.Context, p core.Principal, kind core.GroupKind, id int64) error {
	return s.repo.DeleteGroup(ctx, kind, p.UserID, id)
}

func (s *TaskService) CreateTask(ctx context.Context, p core.Principal, kind core.GroupKind, groupID int64, t core.Task) (core.Task, error) {
	if _, err := s.repo.GetGroup(ctx, kind, p.UserID, groupID); err != nil {
		return core.Task{}, err
	}
	t.ID = 0
	t.GroupID = groupID
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	created, err := s.repo.CreateTask(ctx, kind, t)
	if err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

func (s *TaskService) ListTasks(ctx context.Context, p core.Principal, kind core.GroupKind, groupID int64) ([]core.Task, error) {
	if _, err := s.repo.GetGroup(ctx, kind, p.UserID, groupID); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, kind, groupID)
}

// GetTask returns a task only when it belongs to groupID and the group to p.
func (s *TaskService) GetTask(ctx context.Context, p core.Principal, kind core.GroupKind, groupID, id int64) (core.Task, error) {
	t, err := s.repo.GetTask(ctx, kind, p.UserID, id)
	if err != nil {
		return core.Task{}, err
	}
	if t.GroupID != groupID {
		return core.Task{}, core.ErrNotFound
	}
	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, p core.Principal, kind core.GroupKind, groupID, id int64) error {
	if _, err := s.GetTask(ctx, p, kind, groupID, id); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, kind, id)
}

// UpdateStatus sets a task's status and restarts its start date at now.
// Tasks keep no history.
func (s *TaskService) UpdateStatus(ctx context.Context, p core.Principal, kind core.GroupKind, groupID, id int64, status core.Status) (core.Task, error) {
	if !status.Valid() {
		return core.Task{}, core.FieldError("status", "The selected status is invalid.")
	}
	t, err := s.GetTask(ctx, p, kind, groupID, id)
	if err != nil {
		return core.Task{}, err
	}

	now := s.now()
	if err := s.repo.UpdateTaskStatus(ctx, kind, t.ID, status, now); err != nil {
		return core.Task{}, fmt.Errorf("update task status: %w", err)
	}
	t.Status = status
	t.StartDate = now

	slog.InfoContext(ctx, "Task status updated",
		"kind", kind,
		"task_id", t.ID,
		"status", status)
	return t, nil
}
