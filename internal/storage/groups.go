package storage

import (
	"context"
	"fmt"
	"time"

	"finanzas/internal/core"
)

type groupTables struct {
	groups string
	tasks  string
	fk     string
}

func groupTablesFor(kind core.GroupKind) (groupTables, error) {
	switch kind {
	case core.Project:
		return groupTables{groups: "projects", tasks: "project_tasks", fk: "project_id"}, nil
	case core.Activity:
		return groupTables{groups: "activities", tasks: "activity_tasks", fk: "activity_id"}, nil
	default:
		return groupTables{}, fmt.Errorf("unknown group kind %q", kind)
	}
}

func (r *SQLRepository) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	t, err := groupTablesFor(g.Kind)
	if err != nil {
		return core.Group{}, err
	}
	g.CreatedAt = dbTime(time.Now())
	q := r.rebind(`INSERT INTO ` + t.groups + ` (user_id, name, created_at) VALUES (?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowContext(ctx, q, g.OwnerID, g.Name, g.CreatedAt).Scan(&g.ID); err != nil {
		return core.Group{}, fmt.Errorf("insert %s: %w", t.groups, err)
	}
	return g, nil
}

func (r *SQLRepository) GetGroup(ctx context.Context, kind core.GroupKind, ownerID, id int64) (core.Group, error) {
	t, err := groupTablesFor(kind)
	if err != nil {
		return core.Group{}, err
	}
	g := core.Group{Kind: kind}
	q := r.rebind(`SELECT id, user_id, name, created_at FROM ` + t.groups + ` WHERE id = ? AND user_id = ?`)
	if err := r.db.QueryRowContext(ctx, q, id, ownerID).Scan(&g.ID, &g.OwnerID, &g.Name, scanTime{&g.CreatedAt}); err != nil {
		return core.Group{}, notFound(err)
	}
	return g, nil
}

func (r *SQLRepository) ListGroups(ctx context.Context, kind core.GroupKind, ownerID int64) ([]core.Group, error) {
	t, err := groupTablesFor(kind)
	if err != nil {
		return nil, err
	}
	q := r.rebind(`SELECT id, user_id, name, created_at FROM ` + t.groups + ` WHERE user_id = ? ORDER BY created_at DESC, id DESC`)
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.groups, err)
	}
	defer rows.Close()

	var out []core.Group
	for rows.Next() {
		g := core.Group{Kind: kind}
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, scanTime{&g.CreatedAt}); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.groups, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLRepository) DeleteGroup(ctx context.Context, kind core.GroupKind, ownerID, id int64) error {
	t, err := groupTablesFor(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM `+t.groups+` WHERE id = ? AND user_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.groups, err)
	}
	return checkAffected(res)
}

func taskColumns(t groupTables, prefix string) string {
	return prefix + `id, ` + prefix + t.fk + `, ` + prefix + `name, ` + prefix + `amount_cents, ` +
		prefix + `payment_method, ` + prefix + `status, ` + prefix + `start_date, ` +
		prefix + `end_date, ` + prefix + `created_at`
}

func scanTask(row interface{ Scan(...any) error }) (core.Task, error) {
	var task core.Task
	var method, status string
	err := row.Scan(&task.ID, &task.GroupID, &task.Name, &task.Amount.Cents, &method, &status,
		scanTime{&task.StartDate}, scanDate{&task.EndDate}, scanTime{&task.CreatedAt})
	if err != nil {
		return core.Task{}, err
	}
	task.PaymentMethod = core.PaymentMethod(method)
	task.Status = core.Status(status)
	return task, nil
}

func (r *SQLRepository) CreateTask(ctx context.Context, kind core.GroupKind, task core.Task) (core.Task, error) {
	t, err := groupTablesFor(kind)
	if err != nil {
		return core.Task{}, err
	}
	task.CreatedAt = dbTime(time.Now())
	task.StartDate = dbTime(task.StartDate)
	q := r.rebind(`INSERT INTO ` + t.tasks + ` (` + t.fk + `, name, amount_cents, payment_method, status, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = r.db.QueryRowContext(ctx, q, task.GroupID, task.Name, task.Amount.Cents, string(task.PaymentMethod),
		string(task.Status), task.StartDate, dbTime(task.EndDate.Time), task.CreatedAt).Scan(&task.ID)
	if err != nil {
		return core.Task{}, fmt.Errorf("insert %s: %w", t.tasks, err)
	}
	return task, nil
}

func (r *SQLRepository) ListTasks(ctx context.Context, kind core.GroupKind, groupID int64) ([]core.Task, error) {
	t, err := groupTablesFor(kind)
	if err != nil {
		return nil, err
	}
	q := r.rebind(`SELECT ` + taskColumns(t, "") + ` FROM ` + t.tasks + ` WHERE ` + t.fk + ` = ? ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, q, groupID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.tasks, err)
	}
	defer rows.Close()

	var out []core.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.tasks, err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLRepository) GetTask(ctx context.Context, kind core.GroupKind, ownerID, id int64) (core.Task, error) {
	t, err := groupTablesFor(kind)
	if err != nil {
		return core.Task{}, err
	}
	q := r.rebind(`SELECT ` + taskColumns(t, "t.") + ` FROM ` + t.tasks + ` t
		JOIN ` + t.groups + ` g ON g.id = t.` + t.fk + ` WHERE t.id = ? AND g.user_id = ?`)
	task, err := scanTask(r.db.QueryRowContext(ctx, q, id, ownerID))
	if err != nil {
		return core.Task{}, notFound(err)
	}
	return task, nil
}

func (r *SQLRepository) UpdateTaskStatus(ctx context.Context, kind core.GroupKind, id int64, status core.Status, startDate time.Time) error {
	t, err := groupTablesFor(kind)
	if err != nil {
		return err
	}
	q := r.rebind(`UPDATE ` + t.tasks + ` SET status = ?, start_date = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, string(status), dbTime(startDate), id)
	if err != nil {
		return fmt.Errorf("update %s status: %w", t.tasks, err)
	}
	return checkAffected(res)
}

func (r *SQLRepository) DeleteTask(ctx context.Context, kind core.GroupKind, id int64) error {
	t, err := groupTablesFor(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM `+t.tasks+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.tasks, err)
	}
	return checkAffected(res)
}

var _ Repository = (*SQLRepository)(nil)
