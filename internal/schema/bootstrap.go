// Package schema creates the storefront tables. DDL is idempotent so the
// bootstrap can run at every startup and from the admin endpoint.
package schema

import (
	"context"
	"log/slog"

	"storefront-api/internal/dberr"
	"storefront-api/internal/dbexec"
	"storefront-api/internal/logging"
)

var bootstrapStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		sku VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		unit_price DECIMAL(10,2) NOT NULL,
		stock_qty BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_products_sku (sku)
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		city VARCHAR(100) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_customers_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_ref CHAR(36) NOT NULL,
		customer_id BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		placed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_orders_ref (order_ref),
		KEY idx_orders_customer (customer_id),
		CONSTRAINT fk_orders_customer FOREIGN KEY (customer_id) REFERENCES customers (id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity BIGINT NOT NULL,
		unit_price DECIMAL(10,2) NOT NULL,
		KEY idx_order_items_order (order_id),
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id),
		CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products (id)
	)`,
}

// Bootstrap creates the storefront tables if they do not exist. DDL in MySQL
// commits implicitly, so statements run one at a time outside a transaction.
func Bootstrap(ctx context.Context, exec dbexec.QueryExecutor, logger *logging.Logger) error {
	for _, stmt := range bootstrapStatements {
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return dberr.NewDataAccess("schema.bootstrap", err)
		}
	}
	if logger != nil {
		logger.Info("schema bootstrap complete", slog.Int("statements", len(bootstrapStatements)))
	}
	return nil
}
