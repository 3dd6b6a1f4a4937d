package organization

import (
	"context"
	"fmt"

	"github.com/wso2/case-consent-api/internal/organization/model"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/stores"
)

// OrganizationServiceInterface resolves the participating partner roster.
type OrganizationServiceInterface interface {
	ListParticipating(ctx context.Context, excludeOrgID *int64) ([]model.Organization, *serviceerror.ServiceError)
	GetByID(ctx context.Context, orgID int64) (*model.Organization, *serviceerror.ServiceError)
}

type organizationService struct {
	stores *stores.StoreRegistry
	logger *log.Logger
}

// NewOrganizationService creates the roster service.
func NewOrganizationService(registry *stores.StoreRegistry) OrganizationServiceInterface {
	return &organizationService{
		stores: registry,
		logger: log.GetLogger().With(log.String(log.LoggerKeyComponentName, "OrganizationService")),
	}
}

// ListParticipating returns active partner organizations, never the operating agency,
// optionally leaving out excludeOrgID.
func (s *organizationService) ListParticipating(
	ctx context.Context,
	excludeOrgID *int64,
) ([]model.Organization, *serviceerror.ServiceError) {
	store := s.stores.Organization.(OrganizationStore)
	orgs, err := store.ListParticipating(ctx)
	if err != nil {
		s.logger.Error("Failed to list participating organizations", log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}

	roster := make([]model.Organization, 0, len(orgs))
	for _, org := range orgs {
		if !org.IsActive || org.IsOperatingAgency {
			continue
		}
		if excludeOrgID != nil && org.ID == *excludeOrgID {
			continue
		}
		roster = append(roster, org)
	}
	return roster, nil
}

func (s *organizationService) GetByID(ctx context.Context, orgID int64) (*model.Organization, *serviceerror.ServiceError) {
	store := s.stores.Organization.(OrganizationStore)
	org, err := store.GetByID(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to load organization", log.Int64("org_id", orgID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	if org == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
			fmt.Sprintf("organization not found: %d", orgID))
	}
	return org, nil
}
