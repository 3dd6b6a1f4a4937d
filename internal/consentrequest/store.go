package consentrequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wso2/case-consent-api/internal/consentrequest/model"
	"github.com/wso2/case-consent-api/internal/system/database"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
	dbutils "github.com/wso2/case-consent-api/internal/system/database/utils"
)

const requestColumns = "REQUEST_ID, PERSON_ID, REQUESTING_ORG_ID, PURPOSE, REQUESTED_SCOPES, STATUS, REQUESTED_BY, " +
	"REQUESTED_TIME, DECISION_TIME, DECISION_BY, DECISION_REASON, RESULTING_CONSENT_ID"

// DBQuery objects for all consent request operations
var (
	QueryCreateConsentRequest = dbmodel.DBQuery{
		ID: "CREATE_CONSENT_REQUEST",
		Query: "INSERT INTO CONSENT_REQUEST (" + requestColumns + ", PENDING_KEY) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetConsentRequestByID = dbmodel.DBQuery{
		ID:    "GET_CONSENT_REQUEST_BY_ID",
		Query: "SELECT " + requestColumns + " FROM CONSENT_REQUEST WHERE REQUEST_ID = ?",
	}

	QueryGetPendingConsentRequest = dbmodel.DBQuery{
		ID: "GET_PENDING_CONSENT_REQUEST",
		Query: "SELECT " + requestColumns + " FROM CONSENT_REQUEST " +
			"WHERE PERSON_ID = ? AND REQUESTING_ORG_ID = ? AND STATUS = 'pending' " +
			"ORDER BY REQUESTED_TIME DESC LIMIT 1",
	}

	// QueryResolveConsentRequest only touches pending rows so a decision cannot overwrite another.
	// Clearing PENDING_KEY frees the pair for the next request.
	QueryResolveConsentRequest = dbmodel.DBQuery{
		ID: "RESOLVE_CONSENT_REQUEST",
		Query: "UPDATE CONSENT_REQUEST SET STATUS = ?, DECISION_TIME = ?, DECISION_BY = ?, DECISION_REASON = ?, " +
			"RESULTING_CONSENT_ID = ?, PENDING_KEY = NULL WHERE REQUEST_ID = ? AND STATUS = 'pending'",
	}
)

// ErrPendingRequestExists is returned by Create when the person already has a pending
// request from the same organization.
var ErrPendingRequestExists = errors.New("pending consent request already exists")

// ConsentRequestStore defines the persistence operations for consent requests.
type ConsentRequestStore interface {
	GetByID(ctx context.Context, requestID string) (*model.ConsentRequest, error)
	GetPending(ctx context.Context, personID, orgID int64) (*model.ConsentRequest, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.ConsentRequest, int, error)

	Create(ctx context.Context, tx dbmodel.TxInterface, request *model.ConsentRequest) error
	Resolve(ctx context.Context, tx dbmodel.TxInterface, requestID string, decision model.Decision) (int64, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewConsentRequestStore creates the consent request store.
func NewConsentRequestStore(dbClient provider.DBClientInterface) ConsentRequestStore {
	return &store{dbClient: dbClient}
}

func (s *store) GetByID(ctx context.Context, requestID string) (*model.ConsentRequest, error) {
	return s.queryOne(ctx, QueryGetConsentRequestByID, requestID)
}

// GetPending returns the open request personID has from orgID, or nil.
func (s *store) GetPending(ctx context.Context, personID, orgID int64) (*model.ConsentRequest, error) {
	return s.queryOne(ctx, QueryGetPendingConsentRequest, personID, orgID)
}

func (s *store) queryOne(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) (*model.ConsentRequest, error) {
	rows, err := s.dbClient.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	request := mapToConsentRequest(rows[0])
	return &request, nil
}

// List returns one page of requests matching filter, newest first, and the total match count.
func (s *store) List(ctx context.Context, filter model.ListFilter) ([]model.ConsentRequest, int, error) {
	where, args := buildListFilter(filter)

	countQuery := dbmodel.DBQuery{
		ID:    "COUNT_CONSENT_REQUESTS",
		Query: "SELECT COUNT(*) AS COUNT FROM CONSENT_REQUEST" + where,
	}
	countRows, err := s.dbClient.Query(ctx, countQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	if len(countRows) > 0 {
		total = int(dbutils.Int64(countRows[0], "COUNT"))
	}

	listQuery := dbmodel.DBQuery{
		ID: "LIST_CONSENT_REQUESTS",
		Query: dbutils.BuildPaginationQuery(
			"SELECT "+requestColumns+" FROM CONSENT_REQUEST"+where+" ORDER BY REQUESTED_TIME DESC",
			filter.Limit, filter.Offset),
	}
	rows, err := s.dbClient.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	requests := make([]model.ConsentRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, mapToConsentRequest(row))
	}
	return requests, total, nil
}

func buildListFilter(filter model.ListFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		conditions = append(conditions, "STATUS = ?")
		args = append(args, string(filter.Status))
	}
	if filter.PersonID != nil {
		conditions = append(conditions, "PERSON_ID = ?")
		args = append(args, *filter.PersonID)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (s *store) Create(ctx context.Context, tx dbmodel.TxInterface, request *model.ConsentRequest) error {
	scopes, err := json.Marshal(request.RequestedScopes)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, QueryCreateConsentRequest,
		request.ID,
		request.PersonID,
		request.RequestingOrgID,
		request.Purpose,
		string(scopes),
		string(request.Status),
		request.RequestedBy,
		request.RequestedTime,
		request.DecisionTime,
		request.DecisionBy,
		request.DecisionReason,
		request.ResultingConsentID,
		pendingKey(request),
	)
	if database.IsUniqueViolation(err) {
		return ErrPendingRequestExists
	}
	return err
}

// pendingKey is unique across CONSENT_REQUEST, so at most one pending row exists per person and organization.
func pendingKey(request *model.ConsentRequest) interface{} {
	if request.Status != model.StatusPending {
		return nil
	}
	return fmt.Sprintf("%d:%d", request.PersonID, request.RequestingOrgID)
}

// Resolve applies decision to a pending request and reports the rows touched.
// Zero rows means the request was already resolved.
func (s *store) Resolve(ctx context.Context, tx dbmodel.TxInterface, requestID string, decision model.Decision) (int64, error) {
	return tx.Exec(ctx, QueryResolveConsentRequest,
		string(decision.Status),
		decision.DecisionTime,
		decision.DecisionBy,
		decision.DecisionReason,
		decision.ResultingConsentID,
		requestID,
	)
}

func mapToConsentRequest(row dbmodel.Row) model.ConsentRequest {
	scopes := []string{}
	if raw := dbutils.String(row, "REQUESTED_SCOPES"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &scopes)
	}
	return model.ConsentRequest{
		ID:                 dbutils.String(row, "REQUEST_ID"),
		PersonID:           dbutils.Int64(row, "PERSON_ID"),
		RequestingOrgID:    dbutils.Int64(row, "REQUESTING_ORG_ID"),
		Purpose:            dbutils.String(row, "PURPOSE"),
		RequestedScopes:    scopes,
		Status:             model.Status(dbutils.String(row, "STATUS")),
		RequestedBy:        dbutils.String(row, "REQUESTED_BY"),
		RequestedTime:      dbutils.Int64(row, "REQUESTED_TIME"),
		DecisionTime:       dbutils.OptionalInt64(row, "DECISION_TIME"),
		DecisionBy:         dbutils.OptionalString(row, "DECISION_BY"),
		DecisionReason:     dbutils.OptionalString(row, "DECISION_REASON"),
		ResultingConsentID: dbutils.OptionalString(row, "RESULTING_CONSENT_ID"),
	}
}
