package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"storefront-api/internal/dberr"
	"storefront-api/internal/dbexec"
	"storefront-api/internal/observability"
)

var productColumns = []string{"id", "sku", "name", "description", "unit_price", "stock_qty", "created_at"}

// ProductStore provides catalog access.
type ProductStore struct {
	exec    dbexec.QueryExecutor
	metrics *observability.StoreMetrics
}

// NewProductStore creates a ProductStore on the given executor.
func NewProductStore(exec dbexec.QueryExecutor, metrics *observability.StoreMetrics) *ProductStore {
	return &ProductStore{exec: exec, metrics: metrics}
}

func scanProduct(rows dbexec.Rows) (Product, error) {
	var p Product
	err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.UnitPrice, &p.StockQty, &p.CreatedAt)
	return p, err
}

// List returns products ordered by id, capped at limit.
func (s *ProductStore) List(ctx context.Context, limit uint64) (_ []Product, err error) {
	defer s.metrics.ObserveQuery(ctx, "products", "list", time.Now(), &err)

	query, args, err := sq.Select(productColumns...).
		From("products").
		OrderBy("id ASC").
		Limit(limit).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess("products.list", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, dberr.NewDataAccess("products.list scan", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDataAccess("products.list rows", err)
	}
	return products, nil
}

// Get returns one product by id, or dberr.ErrNotFound.
func (s *ProductStore) Get(ctx context.Context, id int64) (_ *Product, err error) {
	defer s.metrics.ObserveQuery(ctx, "products", "get", time.Now(), &err)

	query, args, err := sq.Select(productColumns...).
		From("products").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryOne(ctx, "products.get", query, args)
}

// GetBySKU returns one product by its unique SKU, or dberr.ErrNotFound.
func (s *ProductStore) GetBySKU(ctx context.Context, sku string) (_ *Product, err error) {
	defer s.metrics.ObserveQuery(ctx, "products", "get_by_sku", time.Now(), &err)

	query, args, err := sq.Select(productColumns...).
		From("products").
		Where(sq.Eq{"sku": sku}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryOne(ctx, "products.get_by_sku", query, args)
}

func (s *ProductStore) queryOne(ctx context.Context, op string, query string, args []any) (*Product, error) {
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
	p, err := scanProduct(rows)
	if err != nil {
		return nil, dberr.NewDataAccess(op+" scan", err)
	}
	return &p, nil
}

// Create inserts a product and returns it with the generated id.
func (s *ProductStore) Create(ctx context.Context, p Product) (_ *Product, err error) {
	defer s.metrics.ObserveQuery(ctx, "products", "create", time.Now(), &err)

	query, args, err := sq.Insert("products").
		Columns("sku", "name", "description", "unit_price", "stock_qty").
		Values(p.SKU, p.Name, p.Description, p.UnitPrice, p.StockQty).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	res, err := s.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess("products.create", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return nil, dberr.NewDataAccess("products.create id", err)
	}
	return &p, nil
}

// Update rewrites a product's mutable fields. Returns dberr.ErrNotFound when
// the id does not exist.
func (s *ProductStore) Update(ctx context.Context, p Product) (err error) {
	defer s.metrics.ObserveQuery(ctx, "products", "update", time.Now(), &err)

	query, args, err := sq.Update("products").
		Set("sku", p.SKU).
		Set("name", p.Name).
		Set("description", p.Description).
		Set("unit_price", p.UnitPrice).
		Set("stock_qty", p.StockQty).
		Where(sq.Eq{"id": p.ID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	return s.execExpectingRow(ctx, "products.update", query, args)
}

// AdjustStock adds delta to a product's stock count.
func (s *ProductStore) AdjustStock(ctx context.Context, id int64, delta int64) (err error) {
	defer s.metrics.ObserveQuery(ctx, "products", "adjust_stock", time.Now(), &err)

	res, err := s.exec.ExecContext(ctx,
		"UPDATE products SET stock_qty = stock_qty + ? WHERE id = ?", delta, id)
	if err != nil {
		return dberr.NewDataAccess("products.adjust_stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dberr.NewDataAccess("products.adjust_stock", err)
	}
	if affected == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// Delete removes a product by id. Returns dberr.ErrNotFound when absent.
func (s *ProductStore) Delete(ctx context.Context, id int64) (err error) {
	defer s.metrics.ObserveQuery(ctx, "products", "delete", time.Now(), &err)

	query, args, err := sq.Delete("products").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	return s.execExpectingRow(ctx, "products.delete", query, args)
}

func (s *ProductStore) execExpectingRow(ctx context.Context, op string, query string, args []any) error {
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
