// Package mocks provides testify mocks for the organization roster.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/case-consent-api/internal/organization/model"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
)

// MockOrganizationStore mocks organization.OrganizationStore.
type MockOrganizationStore struct {
	mock.Mock
}

func (m *MockOrganizationStore) ListParticipating(ctx context.Context) ([]model.Organization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Organization), args.Error(1)
}

func (m *MockOrganizationStore) GetByID(ctx context.Context, orgID int64) (*model.Organization, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organization), args.Error(1)
}

// MockOrganizationService mocks organization.OrganizationServiceInterface.
type MockOrganizationService struct {
	mock.Mock
}

func (m *MockOrganizationService) ListParticipating(ctx context.Context, excludeOrgID *int64) ([]model.Organization, *serviceerror.ServiceError) {
	args := m.Called(ctx, excludeOrgID)
	var orgs []model.Organization
	if v := args.Get(0); v != nil {
		orgs = v.([]model.Organization)
	}
	var svcErr *serviceerror.ServiceError
	if v := args.Get(1); v != nil {
		svcErr = v.(*serviceerror.ServiceError)
	}
	return orgs, svcErr
}

func (m *MockOrganizationService) GetByID(ctx context.Context, orgID int64) (*model.Organization, *serviceerror.ServiceError) {
	args := m.Called(ctx, orgID)
	var org *model.Organization
	if v := args.Get(0); v != nil {
		org = v.(*model.Organization)
	}
	var svcErr *serviceerror.ServiceError
	if v := args.Get(1); v != nil {
		svcErr = v.(*serviceerror.ServiceError)
	}
	return org, svcErr
}

// Roster returns organizations with the given ids, all active partners.
func Roster(ids ...int64) []model.Organization {
	orgs := make([]model.Organization, 0, len(ids))
	for _, id := range ids {
		orgs = append(orgs, model.Organization{ID: id, Name: "Org", IsActive: true})
	}
	return orgs
}
