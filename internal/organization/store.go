package organization

import (
	"context"

	"github.com/wso2/case-consent-api/internal/organization/model"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
	dbutils "github.com/wso2/case-consent-api/internal/system/database/utils"
)

var (
	QueryListParticipating = dbmodel.DBQuery{
		ID: "LIST_PARTICIPATING_ORGANIZATIONS",
		Query: "SELECT ORG_ID, NAME, IS_ACTIVE, IS_OPERATING_AGENCY FROM ORGANIZATION " +
			"WHERE IS_ACTIVE = ? AND IS_OPERATING_AGENCY = ? ORDER BY NAME, ORG_ID",
	}

	QueryGetOrganizationByID = dbmodel.DBQuery{
		ID:    "GET_ORGANIZATION_BY_ID",
		Query: "SELECT ORG_ID, NAME, IS_ACTIVE, IS_OPERATING_AGENCY FROM ORGANIZATION WHERE ORG_ID = ?",
	}
)

// OrganizationStore reads the organization roster.
type OrganizationStore interface {
	ListParticipating(ctx context.Context) ([]model.Organization, error)
	GetByID(ctx context.Context, orgID int64) (*model.Organization, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewOrganizationStore creates the organization store.
func NewOrganizationStore(dbClient provider.DBClientInterface) OrganizationStore {
	return &store{dbClient: dbClient}
}

func (s *store) ListParticipating(ctx context.Context) ([]model.Organization, error) {
	rows, err := s.dbClient.Query(ctx, QueryListParticipating, true, false)
	if err != nil {
		return nil, err
	}
	orgs := make([]model.Organization, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, mapToOrganization(row))
	}
	return orgs, nil
}

// GetByID returns nil when the organization does not exist.
func (s *store) GetByID(ctx context.Context, orgID int64) (*model.Organization, error) {
	rows, err := s.dbClient.Query(ctx, QueryGetOrganizationByID, orgID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	org := mapToOrganization(rows[0])
	return &org, nil
}

func mapToOrganization(row dbmodel.Row) model.Organization {
	return model.Organization{
		ID:                dbutils.Int64(row, "ORG_ID"),
		Name:              dbutils.String(row, "NAME"),
		IsActive:          dbutils.Bool(row, "IS_ACTIVE"),
		IsOperatingAgency: dbutils.Bool(row, "IS_OPERATING_AGENCY"),
	}
}
