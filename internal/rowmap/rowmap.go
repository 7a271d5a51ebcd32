// Package rowmap reconstructs parent/child object graphs from flattened SQL
// join results. A query that joins a parent table with a one-to-one related
// table and a one-to-many child table yields one row per child (or one
// null-padded row for childless parents); Aggregate folds those rows back
// into one parent per distinct key with its related record attached once and
// its children collected in row order.
package rowmap

import (
	"context"

	"storefront-api/internal/dberr"
	"storefront-api/internal/dbexec"
)

// Mapping carries the typed extraction functions for one join shape.
// All functions receive the decoded row value; none of them may retain it.
type Mapping[Row any, ID comparable, Parent, Related, Child any] struct {
	// ParentKey extracts the parent identifier. ok=false marks the row as
	// malformed and aborts the aggregation.
	ParentKey func(Row) (ID, bool)

	// Parent materializes the parent from its first row.
	Parent func(Row) Parent

	// Related materializes the one-to-one related record. May be nil when
	// the query carries no related entity.
	Related func(Row) Related

	// AttachRelated attaches the related record to the parent. Called once
	// per distinct parent key, on first sight. May be nil.
	AttachRelated func(*Parent, Related)

	// HasChild reports whether the row's child portion is a real child or
	// outer-join null padding. Keyed on a non-null child primary key rather
	// than column position, so column reordering cannot shift the boundary.
	HasChild func(Row) bool

	// Child materializes the child record from the row.
	Child func(Row) Child

	// AppendChild appends a child to the parent's collection.
	AppendChild func(*Parent, Child)
}

// Aggregate folds a finite, consume-once sequence of flattened rows into
// parents in first-seen order. It checks ctx between rows and returns the
// context error instead of a partial result when the caller cancels.
func Aggregate[Row any, ID comparable, Parent, Related, Child any](
	ctx context.Context,
	rows func(yield func(Row) bool),
	m Mapping[Row, ID, Parent, Related, Child],
) ([]*Parent, error) {
	agg := newAggregator(m)
	var rowErr error
	rows(func(row Row) bool {
		if err := ctx.Err(); err != nil {
			rowErr = err
			return false
		}
		rowErr = agg.consume(row)
		return rowErr == nil
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return agg.result(), nil
}

// AggregateRows drives a dbexec.Rows result set through scan and aggregates
// the decoded rows. The result set is closed on every path. Scan and
// iteration failures surface as DataAccessError; contract violations as
// AggregationError.
func AggregateRows[Row any, ID comparable, Parent, Related, Child any](
	ctx context.Context,
	rows dbexec.Rows,
	scan func(dbexec.Rows) (Row, error),
	m Mapping[Row, ID, Parent, Related, Child],
) ([]*Parent, error) {
	defer rows.Close()

	agg := newAggregator(m)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := scan(rows)
		if err != nil {
			return nil, dberr.NewDataAccess("scan row", err)
		}
		if err := agg.consume(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDataAccess("iterate rows", err)
	}
	return agg.result(), nil
}

// aggregator holds per-call state: the insertion-ordered parent index.
// It lives for one aggregation and is never shared across calls.
type aggregator[Row any, ID comparable, Parent, Related, Child any] struct {
	mapping Mapping[Row, ID, Parent, Related, Child]
	byKey   map[ID]*Parent
	order   []ID
}

func newAggregator[Row any, ID comparable, Parent, Related, Child any](
	m Mapping[Row, ID, Parent, Related, Child],
) *aggregator[Row, ID, Parent, Related, Child] {
	return &aggregator[Row, ID, Parent, Related, Child]{
		mapping: m,
		byKey:   make(map[ID]*Parent),
	}
}

func (a *aggregator[Row, ID, Parent, Related, Child]) consume(row Row) error {
	key, ok := a.mapping.ParentKey(row)
	if !ok {
		// A row without a parent identifier means the query and the mapping
		// disagree. Skipping it would hide the bug.
		return dberr.NewAggregation("row has no parent identifier")
	}

	parent, seen := a.byKey[key]
	if !seen {
		p := a.mapping.Parent(row)
		parent = &p
		if a.mapping.Related != nil && a.mapping.AttachRelated != nil {
			a.mapping.AttachRelated(parent, a.mapping.Related(row))
		}
		a.byKey[key] = parent
		a.order = append(a.order, key)
	}

	if a.mapping.HasChild != nil && a.mapping.HasChild(row) {
		a.mapping.AppendChild(parent, a.mapping.Child(row))
	}
	return nil
}

func (a *aggregator[Row, ID, Parent, Related, Child]) result() []*Parent {
	out := make([]*Parent, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, a.byKey[key])
	}
	return out
}
