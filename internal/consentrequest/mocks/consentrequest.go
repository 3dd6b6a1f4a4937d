// Package mocks provides testify mocks for the consent request store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/case-consent-api/internal/consentrequest/model"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
)

// MockConsentRequestStore mocks consentrequest.ConsentRequestStore.
type MockConsentRequestStore struct {
	mock.Mock
}

func (m *MockConsentRequestStore) GetByID(ctx context.Context, requestID string) (*model.ConsentRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsentRequest), args.Error(1)
}

func (m *MockConsentRequestStore) GetPending(ctx context.Context, personID, orgID int64) (*model.ConsentRequest, error) {
	args := m.Called(ctx, personID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsentRequest), args.Error(1)
}

func (m *MockConsentRequestStore) List(ctx context.Context, filter model.ListFilter) ([]model.ConsentRequest, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.ConsentRequest), args.Int(1), args.Error(2)
}

func (m *MockConsentRequestStore) Create(ctx context.Context, tx dbmodel.TxInterface, request *model.ConsentRequest) error {
	return m.Called(ctx, tx, request).Error(0)
}

func (m *MockConsentRequestStore) Resolve(ctx context.Context, tx dbmodel.TxInterface, requestID string, decision model.Decision) (int64, error) {
	args := m.Called(ctx, tx, requestID, decision)
	return args.Get(0).(int64), args.Error(1)
}
