// Package storage persists definitions, items, groups and tasks.
//
// The SQL implementation in this package serves both SQLite and PostgreSQL;
// package memory provides an in-process implementation for tests and demos.
package storage

import (
	"context"
	"time"

	"finanzas/internal/core"
)

// DefinitionRepository stores income and outcome definitions. Reads are
// scoped by owner: another owner's rows are reported as core.ErrNotFound.
type DefinitionRepository interface {
	// CreateDefinition stores d and its first item atomically.
	CreateDefinition(ctx context.Context, d core.Definition, first core.Item) (core.Definition, core.Item, error)
	GetDefinition(ctx context.Context, dir core.Direction, ownerID, id int64) (core.Definition, error)
	ListDefinitions(ctx context.Context, dir core.Direction, ownerID int64) ([]core.DefinitionSummary, error)
	UpdateDefinition(ctx context.Context, d core.Definition) (core.Definition, error)
	// DeleteDefinition removes a definition together with its items.
	DeleteDefinition(ctx context.Context, dir core.Direction, ownerID, id int64) error
	// ListDynamic returns every dynamic definition of every owner.
	ListDynamic(ctx context.Context, dir core.Direction) ([]core.Definition, error)
}

// ItemRepository stores the materialized installments of definitions.
type ItemRepository interface {
	// ListItems returns the items of a definition, most recent payment date first.
	ListItems(ctx context.Context, dir core.Direction, definitionID int64) ([]core.Item, error)
	// LatestItem returns the item with the greatest payment date, or core.ErrNotFound.
	LatestItem(ctx context.Context, dir core.Direction, definitionID int64) (core.Item, error)
	InsertItem(ctx context.Context, dir core.Direction, item core.Item) (core.Item, error)
	// InsertItemIfMonthFree inserts item only when the definition has no item
	// inside w. The check and the insert run in one transaction.
	InsertItemIfMonthFree(ctx context.Context, dir core.Direction, item core.Item, w core.MonthWindow) (core.Item, bool, error)
	SetItemStatus(ctx context.Context, dir core.Direction, itemID int64, status core.Status, paymentDate time.Time) error
	// MonthTotals sums the amounts of ownerID's items paid inside w, keyed by
	// definition id. Definitions without items in w are absent.
	MonthTotals(ctx context.Context, dir core.Direction, ownerID int64, w core.MonthWindow) (map[int64]core.Money, error)
	// GetLedgerEntry returns an item joined with its definition.
	GetLedgerEntry(ctx context.Context, dir core.Direction, itemID int64) (core.LedgerEntry, error)
	ListUnexported(ctx context.Context, dir core.Direction, limit int) ([]core.LedgerEntry, error)
	MarkExported(ctx context.Context, dir core.Direction, itemID int64, at time.Time) error
}

// GroupRepository stores projects, activities and their tasks.
type GroupRepository interface {
	CreateGroup(ctx context.Context, g core.Group) (core.Group, error)
	GetGroup(ctx context.Context, kind core.GroupKind, ownerID, id int64) (core.Group, error)
	ListGroups(ctx context.Context, kind core.GroupKind, ownerID int64) ([]core.Group, error)
	DeleteGroup(ctx context.Context, kind core.GroupKind, ownerID, id int64) error

	CreateTask(ctx context.Context, kind core.GroupKind, t core.Task) (core.Task, error)
	ListTasks(ctx context.Context, kind core.GroupKind, groupID int64) ([]core.Task, error)
	// GetTask returns the task only if its group belongs to ownerID.
	GetTask(ctx context.Context, kind core.GroupKind, ownerID, id int64) (core.Task, error)
	UpdateTaskStatus(ctx context.Context, kind core.GroupKind, id int64, status core.Status, startDate time.Time) error
	DeleteTask(ctx context.Context, kind core.GroupKind, id int64) error
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	DefinitionRepository
	ItemRepository
	GroupRepository
	Close() error
}
