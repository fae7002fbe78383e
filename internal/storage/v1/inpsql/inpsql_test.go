package inpsql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"

	storageErrors "pokerroom/internal/storage/v1/errors"
)

func TestMapPSQLErrorUniqueViolation(t *testing.T) {
	err := mapPSQLError(&pgconn.PgError{Code: pgerrcode.UniqueViolation}, "1234")
	var alreadyExists *storageErrors.AlreadyExistsError
	assert.ErrorAs(t, err, &alreadyExists)
	assert.Equal(t, "1234", alreadyExists.ID)
}

func TestMapPSQLErrorForeignKeyViolation(t *testing.T) {
	err := mapPSQLError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, "1234")
	var foreignKey *storageErrors.ForeignKeyError
	assert.ErrorAs(t, err, &foreignKey)
	assert.Equal(t, "1234", foreignKey.ID)
}

func TestMapPSQLErrorWrapped(t *testing.T) {
	wrapped := fmt.Errorf("exec failed: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})
	err := mapPSQLError(wrapped, "1234")
	var alreadyExists *storageErrors.AlreadyExistsError
	assert.ErrorAs(t, err, &alreadyExists)
}

func TestMapPSQLErrorOther(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"non-pg error", errors.New("connection reset")},
		{"unrelated pg code", &pgconn.PgError{Code: pgerrcode.SyntaxError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapPSQLError(tt.err, "1234")
			var execErr *storageErrors.ExecutionPSQLError
			assert.ErrorAs(t, err, &execErr)
		})
	}
}
