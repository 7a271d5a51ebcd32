// Package dberr defines the error taxonomy for the data access layer.
// Callers classify failures with errors.As / errors.Is by kind, never by
// inspecting error text.
package dberr

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound indicates a lookup matched no rows.
var ErrNotFound = errors.New("not found")

// DataAccessError indicates a connectivity or query execution failure at the
// row-source boundary. It is always surfaced to the caller and never retried
// by the data access layer.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccess wraps err as a DataAccessError for operation op.
func NewDataAccess(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DataAccessError{Op: op, Err: err}
}

// AggregationError indicates a malformed flattened-row contract, such as a
// missing parent identifier. It signals a query/mapping bug in the caller and
// is not recoverable at runtime.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("row aggregation failed: %s", e.Reason)
}

// NewAggregation creates an AggregationError with the given reason.
func NewAggregation(format string, args ...any) error {
	return &AggregationError{Reason: fmt.Sprintf(format, args...)}
}

// TransactionError indicates a failure inside a transactional scope. The
// scope has been rolled back; Err carries the original statement error
// unmasked.
type TransactionError struct {
	Stage string // "begin", "exec", "commit"
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Stage, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// NewTransaction wraps err as a TransactionError at the given stage.
func NewTransaction(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &TransactionError{Stage: stage, Err: err}
}

// mysqlDuplicateEntry is the server error number for ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// IsDuplicateKey reports whether err (anywhere in its chain) is a MySQL
// duplicate-key violation. The HTTP layer translates these to conflicts.
func IsDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
