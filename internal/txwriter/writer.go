// Package txwriter executes ordered write statements inside a single
// database transaction. Either every statement commits or none do.
package txwriter

import (
	"context"

	"storefront-api/internal/dberr"
	"storefront-api/internal/dbexec"
)

// Statement is one parameterized write operation.
type Statement struct {
	SQL  string
	Args []any
}

// Result summarizes a committed scope.
type Result struct {
	// Affected is the total affected-row count across all statements.
	Affected int64
	// FirstInsertID is the generated identifier of the first statement that
	// reported one, or zero when no statement did.
	FirstInsertID int64
}

// Writer runs write statements atomically against a transaction source.
type Writer struct {
	beginner dbexec.TxBeginner
}

// New creates a Writer over the given transaction source.
func New(beginner dbexec.TxBeginner) *Writer {
	return &Writer{beginner: beginner}
}

// ExecuteAtomic opens one transaction, executes every statement in order on
// it, and commits. The first failure rolls the scope back and surfaces the
// original error wrapped as a TransactionError; a rollback failure never
// masks it. The writer does not retry; retry policy belongs to the caller.
func (w *Writer) ExecuteAtomic(ctx context.Context, stmts []Statement) (Result, error) {
	tx, err := w.beginner.BeginTx(ctx)
	if err != nil {
		return Result{}, dberr.NewTransaction("begin", err)
	}

	var res Result
	for _, stmt := range stmts {
		execResult, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			_ = tx.Rollback()
			return Result{}, dberr.NewTransaction("exec", err)
		}
		if affected, err := execResult.RowsAffected(); err == nil {
			res.Affected += affected
		}
		if res.FirstInsertID == 0 {
			if id, err := execResult.LastInsertId(); err == nil && id != 0 {
				res.FirstInsertID = id
			}
		}
	}

	if err := tx.Commit(); err != nil {
		// Nothing is durable: the server discards the scope on a failed commit.
		return Result{}, dberr.NewTransaction("commit", err)
	}
	return res, nil
}
