package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/dberr"
	"storefront-api/internal/dbexec"
)

func newProductStore(t *testing.T) (*ProductStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProductStore(dbexec.NewStandardExecutor(db), nil), mock
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "sku", "name", "description", "unit_price", "stock_qty", "created_at"})
}

func TestProductStoreList(t *testing.T) {
	store, mock := newProductStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT id, sku, name, description, unit_price, stock_qty, created_at FROM products ORDER BY id ASC").
		WillReturnRows(productRows().
			AddRow(1, "SKU-1", "Keyboard", "", 49.90, 12, now).
			AddRow(2, "SKU-2", "Mouse", "", 19.90, 30, now))

	products, err := store.List(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "SKU-1", products[0].SKU)
	assert.Equal(t, int64(30), products[1].StockQty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStoreGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newProductStore(t)

		mock.ExpectQuery("SELECT .+ FROM products WHERE id = ?").
			WithArgs(int64(7)).
			WillReturnRows(productRows().AddRow(7, "SKU-7", "Monitor", "27 inch", 219.00, 4, time.Now()))

		p, err := store.Get(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "Monitor", p.Name)
		assert.Equal(t, 219.00, p.UnitPrice)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newProductStore(t)

		mock.ExpectQuery("SELECT .+ FROM products WHERE id = ?").
			WithArgs(int64(99)).
			WillReturnRows(productRows())

		_, err := store.Get(context.Background(), 99)
		assert.ErrorIs(t, err, dberr.ErrNotFound)
	})
}

func TestProductStoreCreate(t *testing.T) {
	t.Run("returns generated id", func(t *testing.T) {
		store, mock := newProductStore(t)

		mock.ExpectExec("INSERT INTO products").
			WithArgs("SKU-9", "Webcam", "1080p", 59.00, int64(10)).
			WillReturnResult(sqlmock.NewResult(9, 1))

		p, err := store.Create(context.Background(), Product{
			SKU: "SKU-9", Name: "Webcam", Description: "1080p", UnitPrice: 59.00, StockQty: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9), p.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate sku surfaces as duplicate key", func(t *testing.T) {
		store, mock := newProductStore(t)

		mock.ExpectExec("INSERT INTO products").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'SKU-9'"})

		_, err := store.Create(context.Background(), Product{SKU: "SKU-9"})
		require.Error(t, err)
		assert.True(t, dberr.IsDuplicateKey(err))
	})
}

func TestProductStoreUpdate(t *testing.T) {
	store, mock := newProductStore(t)

	mock.ExpectExec("UPDATE products SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), Product{ID: 42, SKU: "SKU-42"})
	assert.ErrorIs(t, err, dberr.ErrNotFound)
}

func TestProductStoreAdjustStock(t *testing.T) {
	store, mock := newProductStore(t)

	mock.ExpectExec("UPDATE products SET stock_qty = stock_qty").
		WithArgs(int64(-3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.AdjustStock(context.Background(), 7, -3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStoreDelete(t *testing.T) {
	store, mock := newProductStore(t)

	mock.ExpectExec("DELETE FROM products WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}
