package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"storefront-api/internal/dberr"
	"storefront-api/internal/dbexec"
	"storefront-api/internal/observability"
)

var customerColumns = []string{"id", "email", "first_name", "last_name", "city", "created_at"}

// CustomerStore provides customer account access.
type CustomerStore struct {
	exec    dbexec.QueryExecutor
	metrics *observability.StoreMetrics
}

// NewCustomerStore creates a CustomerStore on the given executor.
func NewCustomerStore(exec dbexec.QueryExecutor, metrics *observability.StoreMetrics) *CustomerStore {
	return &CustomerStore{exec: exec, metrics: metrics}
}

func scanCustomer(rows dbexec.Rows) (Customer, error) {
	var c Customer
	err := rows.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.City, &c.CreatedAt)
	return c, err
}

// List returns customers ordered by id, capped at limit.
func (s *CustomerStore) List(ctx context.Context, limit uint64) (_ []Customer, err error) {
	defer s.metrics.ObserveQuery(ctx, "customers", "list", time.Now(), &err)

	query, args, err := sq.Select(customerColumns...).
		From("customers").
		OrderBy("id ASC").
		Limit(limit).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess("customers.list", err)
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, dberr.NewDataAccess("customers.list scan", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDataAccess("customers.list rows", err)
	}
	return customers, nil
}

// Get returns one customer by id, or dberr.ErrNotFound.
func (s *CustomerStore) Get(ctx context.Context, id int64) (_ *Customer, err error) {
	defer s.metrics.ObserveQuery(ctx, "customers", "get", time.Now(), &err)
	return s.queryOne(ctx, "customers.get", sq.Eq{"id": id})
}

// GetByEmail returns one customer by unique email, or dberr.ErrNotFound.
func (s *CustomerStore) GetByEmail(ctx context.Context, email string) (_ *Customer, err error) {
	defer s.metrics.ObserveQuery(ctx, "customers", "get_by_email", time.Now(), &err)
	return s.queryOne(ctx, "customers.get_by_email", sq.Eq{"email": email})
}

func (s *CustomerStore) queryOne(ctx context.Context, op string, where sq.Eq) (*Customer, error) {
	query, args, err := sq.Select(customerColumns...).
		From("customers").
		Where(where).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess(op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, dberr.NewDataAccess(op, err)
		}
		return nil, dberr.ErrNotFound
	}
	c, err := scanCustomer(rows)
	if err != nil {
		return nil, dberr.NewDataAccess(op+" scan", err)
	}
	return &c, nil
}

// Create inserts a customer and returns it with the generated id.
func (s *CustomerStore) Create(ctx context.Context, c Customer) (_ *Customer, err error) {
	defer s.metrics.ObserveQuery(ctx, "customers", "create", time.Now(), &err)

	query, args, err := sq.Insert("customers").
		Columns("email", "first_name", "last_name", "city").
		Values(c.Email, c.FirstName, c.LastName, c.City).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	res, err := s.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess("customers.create", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return nil, dberr.NewDataAccess("customers.create id", err)
	}
	return &c, nil
}

// Update rewrites a customer's mutable fields. Returns dberr.ErrNotFound
// when the id does not exist.
func (s *CustomerStore) Update(ctx context.Context, c Customer) (err error) {
	defer s.metrics.ObserveQuery(ctx, "customers", "update", time.Now(), &err)

	query, args, err := sq.Update("customers").
		Set("email", c.Email).
		Set("first_name", c.FirstName).
		Set("last_name", c.LastName).
		Set("city", c.City).
		Where(sq.Eq{"id": c.ID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	return s.execExpectingRow(ctx, "customers.update", query, args)
}

// Delete removes a customer by id. Returns dberr.ErrNotFound when absent.
func (s *CustomerStore) Delete(ctx context.Context, id int64) (err error) {
	defer s.metrics.ObserveQuery(ctx, "customers", "delete", time.Now(), &err)

	query, args, err := sq.Delete("customers").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	return s.execExpectingRow(ctx, "customers.delete", query, args)
}

func (s *CustomerStore) execExpectingRow(ctx context.Context, op string, query string, args []any) error {
	res, err := s.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return dberr.NewDataAccess(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dberr.NewDataAccess(op, err)
	}
	if affected == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
