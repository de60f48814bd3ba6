// Package sheets defines the external ledger port and its row layout.
package sheets

import (
	"context"
	"time"

	"finanzas/internal/core"
)

// LedgerWriter appends item rows to an external ledger.
type LedgerWriter interface {
	AppendEntry(ctx context.Context, e core.LedgerEntry) (rowRef string, err error)
}

// Header is the column layout of ledger rows.
var Header = []string{"Date", "Direction", "Definition", "Amount", "Status", "Payment method", "Item"}

// Row renders e in Header order. Amounts are plain decimals so the sheet
// parses them as numbers.
func Row(e core.LedgerEntry) []any {
	return []any{
		e.PaymentDate.UTC().Format(time.DateOnly),
		string(e.Direction),
		e.DefinitionName,
		e.Amount.String(),
		StatusLabel(e.Status),
		PaymentMethodLabel(e.PaymentMethod),
		e.ItemID,
	}
}

func StatusLabel(s core.Status) string {
	switch s {
	case core.StatusPending:
		return "Pending"
	case core.StatusFinished:
		return "Finished"
	case core.StatusOverdue:
		return "Overdue"
	default:
		return string(s)
	}
}

func PaymentMethodLabel(p core.PaymentMethod) string {
	switch p {
	case core.Scotiabank:
		return "Scotiabank"
	case core.Banreservas:
		return "Banreservas"
	case core.Popular:
		return "Popular"
	case core.Emergency:
		return "Emergencia"
	case core.Savings:
		return "Ahorro"
	default:
		return string(p)
	}
}
