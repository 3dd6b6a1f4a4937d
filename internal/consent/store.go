package consent

import (
	"context"
	"fmt"

	"github.com/wso2/case-consent-api/internal/consent/model"
	"github.com/wso2/case-consent-api/internal/scope"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
	dbutils "github.com/wso2/case-consent-api/internal/system/database/utils"
)

const consentColumns = "CONSENT_ID, PERSON_ID, SCOPE, CAPTURED_METHOD, CAPTURED_ORG_ID, ATTESTED_BY_STAFF, ATTESTED_BY_CLIENT, " +
	"NOTES, POLICY_VERSION, CREATED_TIME, UPDATED_TIME, EXPIRES_TIME, REVOKED_TIME, CREATED_BY, REVOKED_BY, " +
	"SUPERSEDED_TIME, SUPERSEDED_BY"

// DBQuery objects for all consent operations
var (
	QueryPersonExists = dbmodel.DBQuery{
		ID:    "PERSON_EXISTS",
		Query: "SELECT COUNT(*) AS COUNT FROM PERSON WHERE PERSON_ID = ?",
	}

	QueryCreateConsent = dbmodel.DBQuery{
		ID: "CREATE_CONSENT",
		Query: "INSERT INTO PERSON_CONSENT (" + consentColumns + ") " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetConsentByID = dbmodel.DBQuery{
		ID:    "GET_CONSENT_BY_ID",
		Query: "SELECT " + consentColumns + " FROM PERSON_CONSENT WHERE CONSENT_ID = ?",
	}

	QueryGetCurrentConsent = dbmodel.DBQuery{
		ID: "GET_CURRENT_CONSENT",
		Query: "SELECT " + consentColumns + " FROM PERSON_CONSENT " +
			"WHERE PERSON_ID = ? AND REVOKED_TIME IS NULL AND SUPERSEDED_TIME IS NULL " +
			"ORDER BY CREATED_TIME DESC LIMIT 1",
	}

	QueryListConsentsByPerson = dbmodel.DBQuery{
		ID:    "LIST_CONSENTS_BY_PERSON",
		Query: "SELECT " + consentColumns + " FROM PERSON_CONSENT WHERE PERSON_ID = ? ORDER BY CREATED_TIME DESC",
	}

	QuerySupersedeCurrentConsent = dbmodel.DBQuery{
		ID: "SUPERSEDE_CURRENT_CONSENT",
		Query: "UPDATE PERSON_CONSENT SET SUPERSEDED_TIME = ?, SUPERSEDED_BY = ?, UPDATED_TIME = ? " +
			"WHERE PERSON_ID = ? AND CONSENT_ID <> ? AND REVOKED_TIME IS NULL AND SUPERSEDED_TIME IS NULL",
	}

	QueryRenewConsent = dbmodel.DBQuery{
		ID: "RENEW_CONSENT",
		Query: "UPDATE PERSON_CONSENT SET SCOPE = ?, EXPIRES_TIME = ?, ATTESTED_BY_STAFF = ?, ATTESTED_BY_CLIENT = ?, " +
			"POLICY_VERSION = ?, UPDATED_TIME = ? " +
			"WHERE CONSENT_ID = ? AND REVOKED_TIME IS NULL AND SUPERSEDED_TIME IS NULL",
	}

	QueryRevokeConsent = dbmodel.DBQuery{
		ID: "REVOKE_CONSENT",
		Query: "UPDATE PERSON_CONSENT SET REVOKED_TIME = ?, REVOKED_BY = ?, UPDATED_TIME = ? " +
			"WHERE CONSENT_ID = ? AND REVOKED_TIME IS NULL",
	}

	QueryGetSelections = dbmodel.DBQuery{
		ID:    "GET_CONSENT_SELECTIONS",
		Query: "SELECT CONSENT_ID, ORG_ID, ALLOWED FROM CONSENT_ORG_SELECTION WHERE CONSENT_ID = ? ORDER BY ORG_ID",
	}

	QueryDeleteSelections = dbmodel.DBQuery{
		ID:    "DELETE_CONSENT_SELECTIONS",
		Query: "DELETE FROM CONSENT_ORG_SELECTION WHERE CONSENT_ID = ?",
	}

	QueryInsertSelection = dbmodel.DBQuery{
		ID:    "INSERT_CONSENT_SELECTION",
		Query: "INSERT INTO CONSENT_ORG_SELECTION (CONSENT_ID, ORG_ID, ALLOWED) VALUES (?, ?, ?)",
	}

	QueryDeleteGrantsByPerson = dbmodel.DBQuery{
		ID:    "DELETE_GRANTS_BY_PERSON",
		Query: "DELETE FROM CONSENT_ORG_GRANT WHERE PERSON_ID = ?",
	}

	QueryDeleteGrantsByConsent = dbmodel.DBQuery{
		ID:    "DELETE_GRANTS_BY_CONSENT",
		Query: "DELETE FROM CONSENT_ORG_GRANT WHERE CONSENT_ID = ?",
	}

	QueryInsertGrant = dbmodel.DBQuery{
		ID:    "INSERT_GRANT",
		Query: "INSERT INTO CONSENT_ORG_GRANT (PERSON_ID, ORG_ID, CONSENT_ID, GRANTED_TIME) VALUES (?, ?, ?, ?)",
	}

	QueryGetActiveGrant = dbmodel.DBQuery{
		ID: "GET_ACTIVE_GRANT",
		Query: "SELECT g.CONSENT_ID FROM CONSENT_ORG_GRANT g " +
			"JOIN PERSON_CONSENT c ON c.CONSENT_ID = g.CONSENT_ID " +
			"WHERE g.PERSON_ID = ? AND g.ORG_ID = ? AND c.REVOKED_TIME IS NULL AND c.SUPERSEDED_TIME IS NULL " +
			"AND (c.EXPIRES_TIME IS NULL OR c.EXPIRES_TIME > ?)",
	}

	QueryListExpiredWithGrants = dbmodel.DBQuery{
		ID: "LIST_EXPIRED_CONSENTS_WITH_GRANTS",
		Query: "SELECT DISTINCT c.CONSENT_ID, c.PERSON_ID FROM PERSON_CONSENT c " +
			"JOIN CONSENT_ORG_GRANT g ON g.CONSENT_ID = c.CONSENT_ID " +
			"WHERE c.REVOKED_TIME IS NULL AND c.EXPIRES_TIME IS NOT NULL AND c.EXPIRES_TIME <= ?",
	}
)

// ConsentStore defines the persistence operations for consents, their org selections and grants.
// Writes take the caller's transaction so one logical operation commits or fails as a whole.
type ConsentStore interface {
	PersonExists(ctx context.Context, personID int64) (bool, error)
	GetByID(ctx context.Context, consentID string) (*model.Consent, error)
	GetCurrent(ctx context.Context, personID int64) (*model.Consent, error)
	ListByPerson(ctx context.Context, personID int64) ([]model.Consent, error)
	GetSelections(ctx context.Context, consentID string) ([]model.Selection, error)
	GetActiveGrant(ctx context.Context, personID, orgID, now int64) (*string, error)
	ListExpiredWithGrants(ctx context.Context, now int64) ([]model.Consent, error)

	Create(ctx context.Context, tx dbmodel.TxInterface, consent *model.Consent) error
	SupersedeCurrent(ctx context.Context, tx dbmodel.TxInterface, personID int64, newConsentID string, now int64) (int64, error)
	Renew(ctx context.Context, tx dbmodel.TxInterface, consent *model.Consent) (int64, error)
	Revoke(ctx context.Context, tx dbmodel.TxInterface, consentID, revokedBy string, now int64) (int64, error)
	ReplaceSelections(ctx context.Context, tx dbmodel.TxInterface, consentID string, result scope.Result) error
	ReplaceGrants(ctx context.Context, tx dbmodel.TxInterface, personID int64, consentID string, allowed []int64, now int64) error
	ClearGrants(ctx context.Context, tx dbmodel.TxInterface, personID int64) error
	ClearGrantsForConsent(ctx context.Context, tx dbmodel.TxInterface, consentID string) error
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewConsentStore creates the consent store.
func NewConsentStore(dbClient provider.DBClientInterface) ConsentStore {
	return &store{dbClient: dbClient}
}

func (s *store) PersonExists(ctx context.Context, personID int64) (bool, error) {
	rows, err := s.dbClient.Query(ctx, QueryPersonExists, personID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && dbutils.Int64(rows[0], "COUNT") > 0, nil
}

// GetByID returns nil when no consent has the id.
func (s *store) GetByID(ctx context.Context, consentID string) (*model.Consent, error) {
	return s.queryOne(ctx, QueryGetConsentByID, consentID)
}

// GetCurrent returns the person's newest consent that is neither revoked nor superseded, or nil.
func (s *store) GetCurrent(ctx context.Context, personID int64) (*model.Consent, error) {
	return s.queryOne(ctx, QueryGetCurrentConsent, personID)
}

func (s *store) queryOne(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) (*model.Consent, error) {
	rows, err := s.dbClient.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	consent := mapToConsent(rows[0])
	return &consent, nil
}

func (s *store) ListByPerson(ctx context.Context, personID int64) ([]model.Consent, error) {
	rows, err := s.dbClient.Query(ctx, QueryListConsentsByPerson, personID)
	if err != nil {
		return nil, err
	}
	consents := make([]model.Consent, 0, len(rows))
	for _, row := range rows {
		consents = append(consents, mapToConsent(row))
	}
	return consents, nil
}

func (s *store) GetSelections(ctx context.Context, consentID string) ([]model.Selection, error) {
	rows, err := s.dbClient.Query(ctx, QueryGetSelections, consentID)
	if err != nil {
		return nil, err
	}
	selections := make([]model.Selection, 0, len(rows))
	for _, row := range rows {
		selections = append(selections, model.Selection{
			ConsentID: dbutils.String(row, "CONSENT_ID"),
			OrgID:     dbutils.Int64(row, "ORG_ID"),
			Allowed:   dbutils.Bool(row, "ALLOWED"),
		})
	}
	return selections, nil
}

// GetActiveGrant returns the consent backing orgID's live grant on personID, or nil.
func (s *store) GetActiveGrant(ctx context.Context, personID, orgID, now int64) (*string, error) {
	rows, err := s.dbClient.Query(ctx, QueryGetActiveGrant, personID, orgID, now)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	consentID := dbutils.String(rows[0], "CONSENT_ID")
	return &consentID, nil
}

// ListExpiredWithGrants returns expired consents that still back at least one grant.
// Only the id and person id are populated.
func (s *store) ListExpiredWithGrants(ctx context.Context, now int64) ([]model.Consent, error) {
	rows, err := s.dbClient.Query(ctx, QueryListExpiredWithGrants, now)
	if err != nil {
		return nil, err
	}
	consents := make([]model.Consent, 0, len(rows))
	for _, row := range rows {
		consents = append(consents, model.Consent{
			ID:       dbutils.String(row, "CONSENT_ID"),
			PersonID: dbutils.Int64(row, "PERSON_ID"),
		})
	}
	return consents, nil
}

func (s *store) Create(ctx context.Context, tx dbmodel.TxInterface, consent *model.Consent) error {
	_, err := tx.Exec(ctx, QueryCreateConsent,
		consent.ID,
		consent.PersonID,
		string(consent.Scope),
		string(consent.CapturedMethod),
		consent.CapturedOrgID,
		consent.AttestedByStaff,
		consent.AttestedByClient,
		consent.Notes,
		consent.PolicyVersion,
		consent.CreatedTime,
		consent.UpdatedTime,
		consent.ExpiresTime,
		consent.RevokedTime,
		consent.CreatedBy,
		consent.RevokedBy,
		consent.SupersededTime,
		consent.SupersededBy,
	)
	return err
}

// SupersedeCurrent marks every live consent of personID other than newConsentID as superseded.
func (s *store) SupersedeCurrent(
	ctx context.Context,
	tx dbmodel.TxInterface,
	personID int64,
	newConsentID string,
	now int64,
) (int64, error) {
	return tx.Exec(ctx, QuerySupersedeCurrentConsent, now, newConsentID, now, personID, newConsentID)
}

// Renew updates the renewable fields of a live consent and reports the rows touched.
func (s *store) Renew(ctx context.Context, tx dbmodel.TxInterface, consent *model.Consent) (int64, error) {
	return tx.Exec(ctx, QueryRenewConsent,
		string(consent.Scope),
		consent.ExpiresTime,
		consent.AttestedByStaff,
		consent.AttestedByClient,
		consent.PolicyVersion,
		consent.UpdatedTime,
		consent.ID,
	)
}

func (s *store) Revoke(ctx context.Context, tx dbmodel.TxInterface, consentID, revokedBy string, now int64) (int64, error) {
	return tx.Exec(ctx, QueryRevokeConsent, now, revokedBy, now, consentID)
}

// ReplaceSelections rewrites the allow and block rows recorded for consentID.
func (s *store) ReplaceSelections(ctx context.Context, tx dbmodel.TxInterface, consentID string, result scope.Result) error {
	if _, err := tx.Exec(ctx, QueryDeleteSelections, consentID); err != nil {
		return err
	}
	for _, orgID := range result.Allowed {
		if _, err := tx.Exec(ctx, QueryInsertSelection, consentID, orgID, true); err != nil {
			return fmt.Errorf("failed to insert selection for org %d: %w", orgID, err)
		}
	}
	for _, orgID := range result.Blocked {
		if _, err := tx.Exec(ctx, QueryInsertSelection, consentID, orgID, false); err != nil {
			return fmt.Errorf("failed to insert selection for org %d: %w", orgID, err)
		}
	}
	return nil
}

// ReplaceGrants makes the person's grants mirror allowed, all backed by consentID.
func (s *store) ReplaceGrants(
	ctx context.Context,
	tx dbmodel.TxInterface,
	personID int64,
	consentID string,
	allowed []int64,
	now int64,
) error {
	if err := s.ClearGrants(ctx, tx, personID); err != nil {
		return err
	}
	for _, orgID := range allowed {
		if _, err := tx.Exec(ctx, QueryInsertGrant, personID, orgID, consentID, now); err != nil {
			return fmt.Errorf("failed to insert grant for org %d: %w", orgID, err)
		}
	}
	return nil
}

func (s *store) ClearGrants(ctx context.Context, tx dbmodel.TxInterface, personID int64) error {
	_, err := tx.Exec(ctx, QueryDeleteGrantsByPerson, personID)
	return err
}

func (s *store) ClearGrantsForConsent(ctx context.Context, tx dbmodel.TxInterface, consentID string) error {
	_, err := tx.Exec(ctx, QueryDeleteGrantsByConsent, consentID)
	return err
}

func mapToConsent(row dbmodel.Row) model.Consent {
	return model.Consent{
		ID:               dbutils.String(row, "CONSENT_ID"),
		PersonID:         dbutils.Int64(row, "PERSON_ID"),
		Scope:            scope.Scope(dbutils.String(row, "SCOPE")),
		CapturedMethod:   model.Method(dbutils.String(row, "CAPTURED_METHOD")),
		CapturedOrgID:    dbutils.OptionalInt64(row, "CAPTURED_ORG_ID"),
		AttestedByStaff:  dbutils.Bool(row, "ATTESTED_BY_STAFF"),
		AttestedByClient: dbutils.Bool(row, "ATTESTED_BY_CLIENT"),
		Notes:            dbutils.OptionalString(row, "NOTES"),
		PolicyVersion:    dbutils.String(row, "POLICY_VERSION"),
		CreatedTime:      dbutils.Int64(row, "CREATED_TIME"),
		UpdatedTime:      dbutils.Int64(row, "UPDATED_TIME"),
		ExpiresTime:      dbutils.OptionalInt64(row, "EXPIRES_TIME"),
		RevokedTime:      dbutils.OptionalInt64(row, "REVOKED_TIME"),
		CreatedBy:        dbutils.String(row, "CREATED_BY"),
		RevokedBy:        dbutils.OptionalString(row, "REVOKED_BY"),
		SupersededTime:   dbutils.OptionalInt64(row, "SUPERSEDED_TIME"),
		SupersededBy:     dbutils.OptionalString(row, "SUPERSEDED_BY"),
	}
}
