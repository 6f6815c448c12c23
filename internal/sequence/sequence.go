// Package sequence issues document numbers from atomic per-(type, year)
// counters. Numbers are unique and monotonically increasing within a
// calendar year and are never reused.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockkeep/stockkeep/internal/shared"
)

// DocType distinguishes independent numbering streams.
type DocType string

const (
	DocTypePurchase DocType = "PUR"
	DocTypeSale     DocType = "INV"
)

// maxPerYear is the widest value the three-digit padding can carry.
const maxPerYear = 999

// Querier is the transaction handle the counter increments through, so
// a claimed number rolls back with the document it was claimed for.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Next claims the next number for (docType, year) and formats it as
// <PREFIX>-<year>-<seq3>. The counter row is upserted with an atomic
// increment, so concurrent callers can never observe the same value.
func Next(ctx context.Context, q Querier, docType DocType, year int) (string, error) {
	var value int64
	err := q.QueryRow(ctx, `INSERT INTO document_sequences (doc_type, year, value)
VALUES ($1, $2, 1)
ON CONFLICT (doc_type, year) DO UPDATE SET value = document_sequences.value + 1
RETURNING value`, string(docType), year).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("sequence: next %s/%d: %w", docType, year, mapContentionError(err))
	}
	if value > maxPerYear {
		return "", fmt.Errorf("sequence: %s/%d reached %d: %w", docType, year, value, shared.ErrSequenceOverflow)
	}
	return Format(docType, year, value), nil
}

// Format renders a document number without claiming it.
func Format(docType DocType, year int, value int64) string {
	return fmt.Sprintf("%s-%d-%03d", docType, year, value)
}

// mapContentionError classifies counter-row contention as retryable.
// The counter for a (docType, year) pair is shared by every concurrent
// posting of that type, so under RepeatableRead a loser of the row lock
// race sees 40001 rather than a business error.
func mapContentionError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "55P03":
			return shared.ErrBusy
		}
	}
	return err
}
