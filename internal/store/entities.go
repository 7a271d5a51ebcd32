// Package store implements the data access layer for the storefront schema:
// products, customers, orders, and order items. Every query is a single
// parameterized statement with an explicit row decoder; nothing here relies
// on reflection-based column matching.
package store

import "time"

// Product is a catalog entry.
type Product struct {
	ID          int64
	SKU         string
	Name        string
	Description string
	UnitPrice   float64
	StockQty    int64
	CreatedAt   time.Time
}

// Customer is a registered buyer.
type Customer struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	City      string
	CreatedAt time.Time
}

// Order statuses. Transitions are enforced by the HTTP layer; the store
// persists whatever status it is given.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCancelled = "cancelled"
)

// Order is a customer purchase. Customer and Items are populated only by the
// detail lookups; flat lookups leave them zero.
type Order struct {
	ID         int64
	Ref        string // public order reference, a UUID assigned at creation
	CustomerID int64
	Status     string
	PlacedAt   time.Time

	Customer *Customer
	Items    []OrderItem
}

// OrderItem is one line of an order. UnitPrice is the product price captured
// at purchase time, not a live reference.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// NewOrderItem is the caller-supplied shape for order creation.
type NewOrderItem struct {
	ProductID int64
	Quantity  int64
	UnitPrice float64
}
