package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_SplitsStatements(t *testing.T) {
	mysql, err := Schema("mysql")
	require.NoError(t, err)
	require.Len(t, mysql, 7)
	assert.Contains(t, mysql[0], "CREATE TABLE IF NOT EXISTS PERSON (")
	assert.Contains(t, mysql[6], "CREATE TABLE IF NOT EXISTS AUDIT_EVENT")

	postgres, err := Schema("postgres")
	require.NoError(t, err)
	assert.Len(t, postgres, 12)
	assert.NotContains(t, postgres[0], "AUTO_INCREMENT")

	_, err = Schema("oracle")
	assert.Error(t, err)
}

func TestApplySchema_StopsOnFirstFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS PERSON ").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ORGANIZATION").WillReturnError(errors.New("access denied"))

	applied, err := Wrap(sqlDB, "mysql").ApplySchema(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, applied)
	assert.Contains(t, err.Error(), "schema statement 2 failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
