package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"storefront-api/internal/dberr"
	"storefront-api/internal/dbexec"
	"storefront-api/internal/observability"
	"storefront-api/internal/rowmap"
	"storefront-api/internal/txwriter"
)

var orderColumns = []string{"id", "order_ref", "customer_id", "status", "placed_at"}

// orderDetailColumns is the column list of the three-way detail join:
// all order columns, all customer columns (repeated per row), then one
// item's columns, null-padded for childless orders.
var orderDetailColumns = []string{
	"o.id", "o.order_ref", "o.customer_id", "o.status", "o.placed_at",
	"c.id", "c.email", "c.first_name", "c.last_name", "c.city", "c.created_at",
	"i.id", "i.product_id", "i.quantity", "i.unit_price",
}

// OrderStore provides order access, including the aggregated detail lookups
// and the atomic order+items write path.
type OrderStore struct {
	exec    dbexec.QueryExecutor
	writer  *txwriter.Writer
	metrics *observability.StoreMetrics
}

// NewOrderStore creates an OrderStore. exec serves reads; writer serves the
// multi-statement write paths.
func NewOrderStore(exec dbexec.QueryExecutor, writer *txwriter.Writer, metrics *observability.StoreMetrics) *OrderStore {
	return &OrderStore{exec: exec, writer: writer, metrics: metrics}
}

func scanOrder(rows dbexec.Rows) (Order, error) {
	var o Order
	err := rows.Scan(&o.ID, &o.Ref, &o.CustomerID, &o.Status, &o.PlacedAt)
	return o, err
}

// orderDetailRow is one flattened record of the detail join. The item part
// uses Null types because the LEFT JOIN pads it for childless orders.
type orderDetailRow struct {
	orderID     int64
	orderRef    string
	customerID  int64
	status      string
	placedAt    time.Time
	custID      int64
	custEmail   string
	custFirst   string
	custLast    string
	custCity    string
	custCreated time.Time
	itemID      sql.NullInt64
	productID   sql.NullInt64
	quantity    sql.NullInt64
	unitPrice   sql.NullFloat64
}

func scanOrderDetailRow(rows dbexec.Rows) (orderDetailRow, error) {
	var r orderDetailRow
	err := rows.Scan(
		&r.orderID, &r.orderRef, &r.customerID, &r.status, &r.placedAt,
		&r.custID, &r.custEmail, &r.custFirst, &r.custLast, &r.custCity, &r.custCreated,
		&r.itemID, &r.productID, &r.quantity, &r.unitPrice,
	)
	return r, err
}

// orderDetailMapping folds detail-join rows into orders. The item boundary
// is keyed on a non-null item primary key, not on column position.
func orderDetailMapping() rowmap.Mapping[orderDetailRow, int64, Order, Customer, OrderItem] {
	return rowmap.Mapping[orderDetailRow, int64, Order, Customer, OrderItem]{
		ParentKey: func(r orderDetailRow) (int64, bool) { return r.orderID, r.orderID != 0 },
		Parent: func(r orderDetailRow) Order {
			return Order{
				ID:         r.orderID,
				Ref:        r.orderRef,
				CustomerID: r.customerID,
				Status:     r.status,
				PlacedAt:   r.placedAt,
				Items:      []OrderItem{},
			}
		},
		Related: func(r orderDetailRow) Customer {
			return Customer{
				ID:        r.custID,
				Email:     r.custEmail,
				FirstName: r.custFirst,
				LastName:  r.custLast,
				City:      r.custCity,
				CreatedAt: r.custCreated,
			}
		},
		AttachRelated: func(o *Order, c Customer) { o.Customer = &c },
		HasChild:      func(r orderDetailRow) bool { return r.itemID.Valid && r.itemID.Int64 != 0 },
		Child: func(r orderDetailRow) OrderItem {
			return OrderItem{
				ID:        r.itemID.Int64,
				OrderID:   r.orderID,
				ProductID: r.productID.Int64,
				Quantity:  r.quantity.Int64,
				UnitPrice: r.unitPrice.Float64,
			}
		},
		AppendChild: func(o *Order, i OrderItem) { o.Items = append(o.Items, i) },
	}
}

func orderDetailSelect() sq.SelectBuilder {
	return sq.Select(orderDetailColumns...).
		From("orders AS o").
		Join("customers AS c ON c.id = o.customer_id").
		LeftJoin("order_items AS i ON i.order_id = o.id").
		PlaceholderFormat(sq.Question)
}

// Get returns one order without customer or items, or dberr.ErrNotFound.
func (s *OrderStore) Get(ctx context.Context, id int64) (_ *Order, err error) {
	defer s.metrics.ObserveQuery(ctx, "orders", "get", time.Now(), &err)

	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess("orders.get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, dberr.NewDataAccess("orders.get", err)
		}
		return nil, dberr.ErrNotFound
	}
	o, err := scanOrder(rows)
	if err != nil {
		return nil, dberr.NewDataAccess("orders.get scan", err)
	}
	return &o, nil
}

// ListByCustomer returns a customer's orders as flat rows, newest first,
// without customers or items attached.
func (s *OrderStore) ListByCustomer(ctx context.Context, customerID int64) (_ []Order, err error) {
	defer s.metrics.ObserveQuery(ctx, "orders", "list_by_customer", time.Now(), &err)

	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("placed_at DESC", "id DESC").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess("orders.list_by_customer", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, dberr.NewDataAccess("orders.list_by_customer scan", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDataAccess("orders.list_by_customer", err)
	}
	return orders, nil
}

// GetDetail returns one order with its customer and items, loaded from a
// single joined query. Items keep result-set order; a childless order comes
// back with an empty item slice. Returns dberr.ErrNotFound for unknown ids.
func (s *OrderStore) GetDetail(ctx context.Context, id int64) (_ *Order, err error) {
	defer s.metrics.ObserveQuery(ctx, "orders", "get_detail", time.Now(), &err)

	query, args, err := orderDetailSelect().
		Where(sq.Eq{"o.id": id}).
		OrderBy("i.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	orders, err := s.queryDetail(ctx, "orders.get_detail", query, args)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, dberr.ErrNotFound
	}
	return orders[0], nil
}

// ListDetailByCustomer returns a customer's orders with items, newest first.
func (s *OrderStore) ListDetailByCustomer(ctx context.Context, customerID int64) (_ []*Order, err error) {
	defer s.metrics.ObserveQuery(ctx, "orders", "list_detail_by_customer", time.Now(), &err)

	query, args, err := orderDetailSelect().
		Where(sq.Eq{"o.customer_id": customerID}).
		OrderBy("o.placed_at DESC", "o.id DESC", "i.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryDetail(ctx, "orders.list_detail_by_customer", query, args)
}

func (s *OrderStore) queryDetail(ctx context.Context, op string, query string, args []any) ([]*Order, error) {
	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDataAccess(op, err)
	}

	orders, err := rowmap.AggregateRows(ctx, rows, scanOrderDetailRow, orderDetailMapping())
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveAggregation(ctx, len(orders))
	return orders, nil
}

// Create writes an order header and its items in one transaction and returns
// the generated order id. The items reference the header id through a
// session variable captured right after the header insert, so all statements
// bind before execution.
func (s *OrderStore) Create(ctx context.Context, customerID int64, items []NewOrderItem) (_ int64, err error) {
	defer s.metrics.ObserveQuery(ctx, "orders", "create", time.Now(), &err)

	stmts := make([]txwriter.Statement, 0, len(items)+2)
	stmts = append(stmts, txwriter.Statement{
		SQL:  "INSERT INTO orders (order_ref, customer_id, status) VALUES (?, ?, ?)",
		Args: []any{uuid.NewString(), customerID, OrderStatusPending},
	})
	stmts = append(stmts, txwriter.Statement{
		SQL: "SET @order_id = LAST_INSERT_ID()",
	})
	for _, item := range items {
		stmts = append(stmts, txwriter.Statement{
			SQL:  "INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES (@order_id, ?, ?, ?)",
			Args: []any{item.ProductID, item.Quantity, item.UnitPrice},
		})
	}

	res, err := s.writer.ExecuteAtomic(ctx, stmts)
	if err != nil {
		s.metrics.ObserveTx(ctx, false)
		return 0, err
	}
	s.metrics.ObserveTx(ctx, true)
	if res.FirstInsertID == 0 {
		return 0, dberr.NewDataAccess("orders.create", errors.New("no insert id reported for order header"))
	}
	return res.FirstInsertID, nil
}

// UpdateStatus sets an order's status. Returns dberr.ErrNotFound when the
// order does not exist or already has the target status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, status string) (err error) {
	defer s.metrics.ObserveQuery(ctx, "orders", "update_status", time.Now(), &err)

	query, args, err := sq.Update("orders").
		Set("status", status).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return dberr.NewDataAccess("orders.update_status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dberr.NewDataAccess("orders.update_status", err)
	}
	if affected == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// Delete removes an order and its items atomically.
func (s *OrderStore) Delete(ctx context.Context, id int64) (err error) {
	defer s.metrics.ObserveQuery(ctx, "orders", "delete", time.Now(), &err)

	res, err := s.writer.ExecuteAtomic(ctx, []txwriter.Statement{
		{SQL: "DELETE FROM order_items WHERE order_id = ?", Args: []any{id}},
		{SQL: "DELETE FROM orders WHERE id = ?", Args: []any{id}},
	})
	if err != nil {
		s.metrics.ObserveTx(ctx, false)
		return err
	}
	s.metrics.ObserveTx(ctx, true)
	if res.Affected == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
