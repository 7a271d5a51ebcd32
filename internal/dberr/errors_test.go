package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestDataAccessError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDataAccess("products.list", cause)

	var daErr *DataAccessError
	assert.True(t, errors.As(err, &daErr))
	assert.Equal(t, "products.list", daErr.Op)
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, NewDataAccess("products.list", nil))
}

func TestTransactionErrorPreservesCause(t *testing.T) {
	cause := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ABC-1'"}
	err := NewTransaction("exec", cause)

	var txErr *TransactionError
	assert.True(t, errors.As(err, &txErr))
	assert.Equal(t, "exec", txErr.Stage)

	// The original driver error stays reachable through the wrapper.
	assert.True(t, IsDuplicateKey(err))
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate entry", &mysql.MySQLError{Number: 1062}, true},
		{"wrapped duplicate entry", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), true},
		{"other mysql error", &mysql.MySQLError{Number: 1451}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateKey(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("customer 3: %w", ErrNotFound)))
	assert.False(t, IsNotFound(errors.New("boom")))
}
