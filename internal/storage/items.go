package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finanzas/internal/core"
)

func itemColumns(t tables) string {
	return `id, ` + t.fk + `, amount_cents, payment_date, status, type, exported_at, created_at`
}

func scanItem(row interface{ Scan(...any) error }) (core.Item, error) {
	var it core.Item
	var status, kind string
	err := row.Scan(&it.ID, &it.DefinitionID, &it.Amount.Cents, scanTime{&it.PaymentDate},
		&status, &kind, scanTime{&it.ExportedAt}, scanTime{&it.CreatedAt})
	if err != nil {
		return core.Item{}, err
	}
	it.Status = core.Status(status)
	it.Kind = core.Kind(kind)
	return it, nil
}

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLRepository) insertItem(ctx context.Context, db execer, t tables, it core.Item) (core.Item, error) {
	it.PaymentDate = dbTime(it.PaymentDate)
	it.CreatedAt = dbTime(time.Now())
	q := r.rebind(`INSERT INTO ` + t.items + ` (` + t.fk + `, amount_cents, payment_date, status, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := db.QueryRowContext(ctx, q,
		it.DefinitionID, it.Amount.Cents, it.PaymentDate, string(it.Status), string(it.Kind), it.CreatedAt,
	).Scan(&it.ID)
	if err != nil {
		return core.Item{}, fmt.Errorf("insert %s: %w", t.items, err)
	}
	return it, nil
}

func (r *SQLRepository) ListItems(ctx context.Context, dir core.Direction, definitionID int64) ([]core.Item, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return nil, err
	}
	q := r.rebind(`SELECT ` + itemColumns(t) + ` FROM ` + t.items + ` WHERE ` + t.fk + ` = ?
		ORDER BY payment_date DESC, id DESC`)
	rows, err := r.db.QueryContext(ctx, q, definitionID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.items, err)
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.items, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLRepository) LatestItem(ctx context.Context, dir core.Direction, definitionID int64) (core.Item, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return core.Item{}, err
	}
	q := r.rebind(`SELECT ` + itemColumns(t) + ` FROM ` + t.items + ` WHERE ` + t.fk + ` = ?
		ORDER BY payment_date DESC, id DESC LIMIT 1`)
	it, err := scanItem(r.db.QueryRowContext(ctx, q, definitionID))
	if err != nil {
		return core.Item{}, notFound(err)
	}
	return it, nil
}

func (r *SQLRepository) InsertItem(ctx context.Context, dir core.Direction, item core.Item) (core.Item, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return core.Item{}, err
	}
	return r.insertItem(ctx, r.db, t, item)
}

func (r *SQLRepository) InsertItemIfMonthFree(ctx context.Context, dir core.Direction, item core.Item, w core.MonthWindow) (core.Item, bool, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return core.Item{}, false, err
	}

	inserted := false
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		// Serializes concurrent generators on the same definition in PostgreSQL.
		var id int64
		lock := r.rebind(`SELECT id FROM ` + t.defs + ` WHERE id = ?` + r.forUpdate())
		if err := tx.QueryRowContext(ctx, lock, item.DefinitionID).Scan(&id); err != nil {
			return fmt.Errorf("lock %s: %w", t.defs, notFound(err))
		}

		var n int
		q := r.rebind(`SELECT COUNT(*) FROM ` + t.items + ` WHERE ` + t.fk + ` = ? AND payment_date >= ? AND payment_date < ?`)
		if err := tx.QueryRowContext(ctx, q, item.DefinitionID, dbTime(w.Start), dbTime(w.End)).Scan(&n); err != nil {
			return fmt.Errorf("count %s in month: %w", t.items, err)
		}
		if n > 0 {
			return nil
		}

		created, err := r.insertItem(ctx, tx, t, item)
		if err != nil {
			return err
		}
		item = created
		inserted = true
		return nil
	})
	if err != nil {
		return core.Item{}, false, err
	}
	return item, inserted, nil
}

func (r *SQLRepository) SetItemStatus(ctx context.Context, dir core.Direction, itemID int64, status core.Status, paymentDate time.Time) error {
	t, err := tablesFor(dir)
	if err != nil {
		return err
	}
	q := r.rebind(`UPDATE ` + t.items + ` SET status = ?, payment_date = ?, exported_at = NULL WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, string(status), dbTime(paymentDate), itemID)
	if err != nil {
		return fmt.Errorf("update %s status: %w", t.items, err)
	}
	return checkAffected(res)
}

func (r *SQLRepository) MonthTotals(ctx context.Context, dir core.Direction, ownerID int64, w core.MonthWindow) (map[int64]core.Money, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return nil, err
	}
	q := r.rebind(`SELECT i.` + t.fk + `, SUM(i.amount_cents) FROM ` + t.items + ` i
		JOIN ` + t.defs + ` d ON d.id = i.` + t.fk + `
		WHERE d.user_id = ? AND i.payment_date >= ? AND i.payment_date < ?
		GROUP BY i.` + t.fk)
	rows, err := r.db.QueryContext(ctx, q, ownerID, dbTime(w.Start), dbTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("sum %s in month: %w", t.items, err)
	}
	defer rows.Close()

	totals := make(map[int64]core.Money)
	for rows.Next() {
		var id, cents int64
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, fmt.Errorf("scan %s totals: %w", t.items, err)
		}
		totals[id] = core.Money{Cents: cents}
	}
	return totals, rows.Err()
}

func ledgerQuery(t tables, where string) string {
	return `SELECT i.id, i.` + t.fk + `, d.user_id, d.name, i.amount_cents, i.payment_date, i.status, d.payment_method, i.exported_at
		FROM ` + t.items + ` i JOIN ` + t.defs + ` d ON d.id = i.` + t.fk + ` WHERE ` + where
}

func scanLedgerEntry(row interface{ Scan(...any) error }, dir core.Direction) (core.LedgerEntry, error) {
	e := core.LedgerEntry{Direction: dir}
	var status, method string
	if err := row.Scan(&e.ItemID, &e.DefinitionID, &e.OwnerID, &e.DefinitionName,
		&e.Amount.Cents, scanTime{&e.PaymentDate}, &status, &method, scanTime{&e.ExportedAt}); err != nil {
		return core.LedgerEntry{}, err
	}
	e.Status = core.Status(status)
	e.PaymentMethod = core.PaymentMethod(method)
	return e, nil
}

func (r *SQLRepository) GetLedgerEntry(ctx context.Context, dir core.Direction, itemID int64) (core.LedgerEntry, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e, err := scanLedgerEntry(r.db.QueryRowContext(ctx, r.rebind(ledgerQuery(t, `i.id = ?`)), itemID), dir)
	if err != nil {
		return core.LedgerEntry{}, notFound(err)
	}
	return e, nil
}

// ListUnexported returns items not yet written to the ledger, oldest first.
func (r *SQLRepository) ListUnexported(ctx context.Context, dir core.Direction, limit int) ([]core.LedgerEntry, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return nil, err
	}
	q := r.rebind(ledgerQuery(t, `i.exported_at IS NULL ORDER BY i.id LIMIT ?`))
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported %s: %w", t.items, err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows, dir)
		if err != nil {
			return nil, fmt.Errorf("scan unexported %s: %w", t.items, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLRepository) MarkExported(ctx context.Context, dir core.Direction, itemID int64, at time.Time) error {
	t, err := tablesFor(dir)
	if err != nil {
		return err
	}
	q := r.rebind(`UPDATE ` + t.items + ` SET exported_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, dbTime(at), itemID)
	if err != nil {
		return fmt.Errorf("mark %s exported: %w", t.items, err)
	}
	return checkAffected(res)
}
