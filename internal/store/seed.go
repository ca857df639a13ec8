package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BatchInsertTransactions inserts transactions with a multi-row VALUES
// statement, chunked so one statement never binds an unbounded argument list.
// Used by cmd/seed.
func (s *Store) BatchInsertTransactions(ctx context.Context, txns []TransactionParams, batchSize int) (err error) {
	defer instrument("transactions.batch_insert", time.Now(), &err)
	if len(txns) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	for start := 0; start < len(txns); start += batchSize {
		end := start + batchSize
		if end > len(txns) {
			end = len(txns)
		}
		batch := txns[start:end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO transactions (type, amount_cents, currency, description, category_id, occurred_at, metadata) VALUES ")
		args := make([]any, 0, len(batch)*7)
		for i, t := range batch {
			if i > 0 {
				sb.WriteByte(',')
			}
			idx := i*7 + 1
			sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)", idx, idx+1, idx+2, idx+3, idx+4, idx+5, idx+6))
			args = append(args, t.Type, t.AmountCents, t.Currency, t.Description, t.CategoryID, t.OccurredAt, t.Metadata)
		}
		if _, err = s.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// ResetData empties every table so cmd/seed can start from scratch.
// Identity sequences restart at 1.
func (s *Store) ResetData(ctx context.Context) (err error) {
	defer instrument("seed.reset", time.Now(), &err)
	_, err = s.db.ExecContext(ctx,
		`TRUNCATE transactions, budgets, recurring_transactions, categories, users RESTART IDENTITY CASCADE`)
	return err
}
