package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/core"
)

// tables names the definition/item table pair of a direction.
type tables struct {
	defs  string
	items string
	fk    string
}

func tablesFor(dir core.Direction) (tables, error) {
	switch dir {
	case core.Income:
		return tables{defs: "incomes", items: "income_items", fk: "income_id"}, nil
	case core.Outcome:
		return tables{defs: "outcomes", items: "outcome_items", fk: "outcome_id"}, nil
	default:
		return tables{}, fmt.Errorf("unknown direction %q", dir)
	}
}

const definitionColumns = `id, user_id, name, amount_cents, type, frequency, payment_method,
	category, cuotas, note, attachment, start_date, end_date, created_at, updated_at`

func scanDefinition(row interface{ Scan(...any) error }, dir core.Direction) (core.Definition, error) {
	d := core.Definition{Direction: dir}
	var kind, freq, method, category string
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Amount.Cents, &kind, &freq, &method,
		&category, &d.Cuotas, &d.Note, &d.Attachment,
		scanDate{&d.StartDate}, scanDate{&d.EndDate},
		scanTime{&d.CreatedAt}, scanTime{&d.UpdatedAt})
	if err != nil {
		return core.Definition{}, err
	}
	d.Kind = core.Kind(kind)
	d.Frequency = core.Frequency(freq)
	d.PaymentMethod = core.PaymentMethod(method)
	d.Category = core.Category(category)
	return d, nil
}

func (r *SQLRepository) CreateDefinition(ctx context.Context, d core.Definition, first core.Item) (core.Definition, core.Item, error) {
	t, err := tablesFor(d.Direction)
	if err != nil {
		return core.Definition{}, core.Item{}, err
	}

	now := dbTime(time.Now())
	d.CreatedAt, d.UpdatedAt = now, now

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		q := r.rebind(`INSERT INTO ` + t.defs + ` (user_id, name, amount_cents, type, frequency, payment_method,
			category, cuotas, note, attachment, start_date, end_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := tx.QueryRowContext(ctx, q,
			d.OwnerID, d.Name, d.Amount.Cents, string(d.Kind), string(d.Frequency), string(d.PaymentMethod),
			string(d.Category), d.Cuotas, d.Note, d.Attachment,
			dbTime(d.StartDate.Time), nullTime(d.EndDate.Time), now, now,
		).Scan(&d.ID); err != nil {
			return fmt.Errorf("insert %s: %w", t.defs, err)
		}

		first.DefinitionID = d.ID
		item, err := r.insertItem(ctx, tx, t, first)
		if err != nil {
			return err
		}
		first = item
		return nil
	})
	if err != nil {
		return core.Definition{}, core.Item{}, err
	}

	slog.InfoContext(ctx, "Definition created",
		"direction", d.Direction,
		"id", d.ID,
		"owner_id", d.OwnerID,
		"kind", d.Kind,
		"frequency", d.Frequency.String())

	return d, first, nil
}

func (r *SQLRepository) GetDefinition(ctx context.Context, dir core.Direction, ownerID, id int64) (core.Definition, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return core.Definition{}, err
	}
	q := r.rebind(`SELECT ` + definitionColumns + ` FROM ` + t.defs + ` WHERE id = ? AND user_id = ?`)
	d, err := scanDefinition(r.db.QueryRowContext(ctx, q, id, ownerID), dir)
	if err != nil {
		return core.Definition{}, notFound(err)
	}
	return d, nil
}

// ListDefinitions returns the owner's definitions newest first, each with
// the status of its latest item and the sum of its item amounts.
func (r *SQLRepository) ListDefinitions(ctx context.Context, dir core.Direction, ownerID int64) ([]core.DefinitionSummary, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return nil, err
	}

	q := r.rebind(`SELECT ` + definitionColumns + ` FROM ` + t.defs + ` WHERE user_id = ? ORDER BY created_at DESC, id DESC`)
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.defs, err)
	}
	var defs []core.Definition
	for rows.Next() {
		d, err := scanDefinition(rows, dir)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan %s: %w", t.defs, err)
		}
		defs = append(defs, d)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats, err := r.itemStats(ctx, t, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]core.DefinitionSummary, 0, len(defs))
	for _, d := range defs {
		s := stats[d.ID]
		s.Definition = d
		out = append(out, s)
	}
	return out, nil
}

// itemStats reads every item of ownerID in one pass. Rows arrive latest
// first within each definition, so the first row sets the latest status.
func (r *SQLRepository) itemStats(ctx context.Context, t tables, ownerID int64) (map[int64]core.DefinitionSummary, error) {
	q := r.rebind(`SELECT i.` + t.fk + `, i.amount_cents, i.payment_date, i.status FROM ` + t.items + ` i
		JOIN ` + t.defs + ` d ON d.id = i.` + t.fk + `
		WHERE d.user_id = ?
		ORDER BY i.` + t.fk + `, i.payment_date DESC, i.id DESC`)
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.items, err)
	}
	defer rows.Close()

	stats := make(map[int64]core.DefinitionSummary)
	for rows.Next() {
		var (
			id, cents int64
			paid      time.Time
			status    string
		)
		if err := rows.Scan(&id, &cents, scanTime{&paid}, &status); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.items, err)
		}
		s, seen := stats[id]
		if !seen {
			s.LatestStatus = core.Status(status)
			s.LatestPaymentDate = paid
		}
		s.TotalAmount = s.TotalAmount.Add(core.Money{Cents: cents})
		stats[id] = s
	}
	return stats, rows.Err()
}

func (r *SQLRepository) UpdateDefinition(ctx context.Context, d core.Definition) (core.Definition, error) {
	t, err := tablesFor(d.Direction)
	if err != nil {
		return core.Definition{}, err
	}
	d.UpdatedAt = dbTime(time.Now())

	q := r.rebind(`UPDATE ` + t.defs + ` SET name = ?, amount_cents = ?, type = ?, frequency = ?, payment_method = ?,
		category = ?, cuotas = ?, note = ?, attachment = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`)
	res, err := r.db.ExecContext(ctx, q,
		d.Name, d.Amount.Cents, string(d.Kind), string(d.Frequency), string(d.PaymentMethod),
		string(d.Category), d.Cuotas, d.Note, d.Attachment,
		dbTime(d.StartDate.Time), nullTime(d.EndDate.Time), d.UpdatedAt,
		d.ID, d.OwnerID)
	if err != nil {
		return core.Definition{}, fmt.Errorf("update %s: %w", t.defs, err)
	}
	if err := checkAffected(res); err != nil {
		return core.Definition{}, err
	}
	return r.GetDefinition(ctx, d.Direction, d.OwnerID, d.ID)
}

func (r *SQLRepository) DeleteDefinition(ctx context.Context, dir core.Direction, ownerID, id int64) error {
	t, err := tablesFor(dir)
	if err != nil {
		return err
	}
	q := r.rebind(`DELETE FROM ` + t.defs + ` WHERE id = ? AND user_id = ?`)
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.defs, err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Definition deleted", "direction", dir, "id", id, "owner_id", ownerID)
	return nil
}

func (r *SQLRepository) ListDynamic(ctx context.Context, dir core.Direction) ([]core.Definition, error) {
	t, err := tablesFor(dir)
	if err != nil {
		return nil, err
	}
	q := r.rebind(`SELECT ` + definitionColumns + ` FROM ` + t.defs + ` WHERE type = ? ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, q, string(core.Dynamic))
	if err != nil {
		return nil, fmt.Errorf("list dynamic %s: %w", t.defs, err)
	}
	defer rows.Close()

	var defs []core.Definition
	for rows.Next() {
		d, err := scanDefinition(rows, dir)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.defs, err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}
