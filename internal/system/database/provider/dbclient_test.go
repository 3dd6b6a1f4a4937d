package provider

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/case-consent-api/internal/system/database"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
)

var testQuery = dbmodel.DBQuery{
	ID:    "LIST_ORGS",
	Query: "SELECT ORG_ID, NAME FROM ORGANIZATION WHERE IS_ACTIVE = ?",
}

func TestQuery_NormalizesRows(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta(testQuery.Query)).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"org_id", "name"}).AddRow(int64(3), []byte("Harbor House")))

	client := NewDBClient(database.Wrap(sqlDB, "mysql"))
	rows, err := client.Query(context.Background(), testQuery, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["ORG_ID"])
	assert.Equal(t, "Harbor House", rows[0]["NAME"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_PostgresPlaceholders(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ORG_ID, NAME FROM ORGANIZATION WHERE IS_ACTIVE = $1")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"org_id", "name"}))

	client := NewDBClient(database.Wrap(sqlDB, "postgres"))
	rows, err := client.Query(context.Background(), testQuery, true)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_ExecAndRollback(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	update := dbmodel.DBQuery{ID: "UPDATE", Query: "UPDATE CONSENT_REQUEST SET STATUS = ? WHERE REQUEST_ID = ?"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(update.Query)).
		WithArgs("approved", "req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(update.Query)).
		WithArgs("denied", "req-2").
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	client := NewDBClient(database.Wrap(sqlDB, "mysql"))
	tx, err := client.BeginTx(context.Background())
	require.NoError(t, err)

	affected, err := tx.Exec(context.Background(), update, "approved", "req-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = tx.Exec(context.Background(), update, "denied", "req-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPDATE")

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
