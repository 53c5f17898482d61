package postgresengine_test

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/bookhive/lending-service-go/lending"
	"github.com/bookhive/lending-service-go/lending/postgresengine"
)

func Test_NewLendingStore_Error_NilConnection(t *testing.T) {
	_, pgxErr := postgresengine.NewLendingStoreFromPGXPool((*pgxpool.Pool)(nil))
	assert.ErrorIs(t, pgxErr, lending.ErrNilDatabaseConnection)

	_, sqlErr := postgresengine.NewLendingStoreFromSQLDB((*sql.DB)(nil))
	assert.ErrorIs(t, sqlErr, lending.ErrNilDatabaseConnection)

	_, sqlxErr := postgresengine.NewLendingStoreFromSQLX((*sqlx.DB)(nil))
	assert.ErrorIs(t, sqlxErr, lending.ErrNilDatabaseConnection)
}

func Test_NewLendingStore_Error_EmptyTableName(t *testing.T) {
	pool := &pgxpool.Pool{}

	_, booksErr := postgresengine.NewLendingStoreFromPGXPool(pool, postgresengine.WithBooksTableName(""))
	assert.ErrorIs(t, booksErr, lending.ErrEmptyTableName)

	_, borrowingsErr := postgresengine.NewLendingStoreFromPGXPool(pool, postgresengine.WithBorrowingsTableName(""))
	assert.ErrorIs(t, borrowingsErr, lending.ErrEmptyTableName)
}
