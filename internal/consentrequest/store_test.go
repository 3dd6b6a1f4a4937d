package consentrequest

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/case-consent-api/internal/consentrequest/model"
	"github.com/wso2/case-consent-api/internal/system/database"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
)

func newMockClient(t *testing.T) (provider.DBClientInterface, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return provider.NewDBClient(database.Wrap(sqlDB, "mysql")), mock
}

var requestRowColumns = []string{
	"REQUEST_ID", "PERSON_ID", "REQUESTING_ORG_ID", "PURPOSE", "REQUESTED_SCOPES", "STATUS", "REQUESTED_BY",
	"REQUESTED_TIME", "DECISION_TIME", "DECISION_BY", "DECISION_REASON", "RESULTING_CONSENT_ID",
}

func TestStore_CreateEncodesScopes(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(QueryCreateConsentRequest.Query)).
		WithArgs(requestID, 42, 5, "intake", `["case_notes","contacts"]`, "pending", "partner-1", 100,
			nil, nil, nil, nil, "42:5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := client.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, NewConsentRequestStore(client).Create(ctx, tx, &model.ConsentRequest{
		ID:              requestID,
		PersonID:        42,
		RequestingOrgID: 5,
		Purpose:         "intake",
		RequestedScopes: []string{"case_notes", "contacts"},
		Status:          model.StatusPending,
		RequestedBy:     "partner-1",
		RequestedTime:   100,
	}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateReportsDuplicatePending(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(QueryCreateConsentRequest.Query)).
		WithArgs(requestID, 42, 5, "intake", `["case_notes"]`, "pending", "partner-1", 100,
			nil, nil, nil, nil, "42:5").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '42:5' for key 'PENDING_KEY'"})
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := client.BeginTx(ctx)
	require.NoError(t, err)
	err = NewConsentRequestStore(client).Create(ctx, tx, &model.ConsentRequest{
		ID:              requestID,
		PersonID:        42,
		RequestingOrgID: 5,
		Purpose:         "intake",
		RequestedScopes: []string{"case_notes"},
		Status:          model.StatusPending,
		RequestedBy:     "partner-1",
		RequestedTime:   100,
	})
	assert.ErrorIs(t, err, ErrPendingRequestExists)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByIDMapsDecision(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery(regexp.QuoteMeta(QueryGetConsentRequestByID.Query)).
		WithArgs(requestID).
		WillReturnRows(sqlmock.NewRows(requestRowColumns).AddRow(
			requestID, 42, 5, "intake", []byte(`["case_notes"]`), "approved", "partner-1",
			100, 200, "manager-1", nil, "c-1"))

	request, err := NewConsentRequestStore(client).GetByID(context.Background(), requestID)

	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, model.StatusApproved, request.Status)
	assert.Equal(t, []string{"case_notes"}, request.RequestedScopes)
	assert.Equal(t, int64(200), *request.DecisionTime)
	assert.Equal(t, "manager-1", *request.DecisionBy)
	assert.Nil(t, request.DecisionReason)
	assert.Equal(t, "c-1", *request.ResultingConsentID)
}

func TestStore_ResolveOnlyTouchesPending(t *testing.T) {
	client, mock := newMockClient(t)
	reason := "duplicate"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(QueryResolveConsentRequest.Query)).
		WithArgs("denied", 300, "manager-1", reason, nil, requestID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := client.BeginTx(ctx)
	require.NoError(t, err)
	rows, err := NewConsentRequestStore(client).Resolve(ctx, tx, requestID, model.Decision{
		Status:         model.StatusDenied,
		DecisionTime:   300,
		DecisionBy:     "manager-1",
		DecisionReason: &reason,
	})
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Contains(t, QueryResolveConsentRequest.Query, "PENDING_KEY = NULL")
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListAppliesFilters(t *testing.T) {
	client, mock := newMockClient(t)
	personID := int64(42)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS COUNT FROM CONSENT_REQUEST WHERE STATUS = ? AND PERSON_ID = ?")).
		WithArgs("pending", 42).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM CONSENT_REQUEST WHERE STATUS = ? AND PERSON_ID = ? ORDER BY REQUESTED_TIME DESC LIMIT 2 OFFSET 2")).
		WithArgs("pending", 42).
		WillReturnRows(sqlmock.NewRows(requestRowColumns).AddRow(
			requestID, 42, 5, "intake", "", "pending", "partner-1", 100, nil, nil, nil, nil))

	requests, total, err := NewConsentRequestStore(client).List(context.Background(), model.ListFilter{
		Status:   model.StatusPending,
		PersonID: &personID,
		Limit:    2,
		Offset:   2,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, requests, 1)
	assert.Equal(t, []string{}, requests[0].RequestedScopes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
