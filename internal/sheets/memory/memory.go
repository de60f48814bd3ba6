// Package memory is an in-process ledger, used when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finanzas/internal/core"
	"finanzas/internal/sheets"
)

type Ledger struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Ledger {
	return &Ledger{}
}

func (l *Ledger) AppendEntry(_ context.Context, e core.LedgerEntry) (string, error) {
	if !e.Direction.Valid() {
		return "", fmt.Errorf("invalid direction %q", e.Direction)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, sheets.Row(e))
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of the appended rows.
func (l *Ledger) Rows() [][]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]any(nil), l.rows...)
}

var _ sheets.LedgerWriter = (*Ledger)(nil)
