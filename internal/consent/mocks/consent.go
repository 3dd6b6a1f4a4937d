// Package mocks provides testify mocks for the consent store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/case-consent-api/internal/consent/model"
	"github.com/wso2/case-consent-api/internal/scope"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
)

// MockConsentStore mocks consent.ConsentStore.
type MockConsentStore struct {
	mock.Mock
}

func (m *MockConsentStore) PersonExists(ctx context.Context, personID int64) (bool, error) {
	args := m.Called(ctx, personID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConsentStore) GetByID(ctx context.Context, consentID string) (*model.Consent, error) {
	args := m.Called(ctx, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consent), args.Error(1)
}

func (m *MockConsentStore) GetCurrent(ctx context.Context, personID int64) (*model.Consent, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consent), args.Error(1)
}

func (m *MockConsentStore) ListByPerson(ctx context.Context, personID int64) ([]model.Consent, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Consent), args.Error(1)
}

func (m *MockConsentStore) GetSelections(ctx context.Context, consentID string) ([]model.Selection, error) {
	args := m.Called(ctx, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Selection), args.Error(1)
}

func (m *MockConsentStore) GetActiveGrant(ctx context.Context, personID, orgID, now int64) (*string, error) {
	args := m.Called(ctx, personID, orgID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockConsentStore) ListExpiredWithGrants(ctx context.Context, now int64) ([]model.Consent, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Consent), args.Error(1)
}

func (m *MockConsentStore) Create(ctx context.Context, tx dbmodel.TxInterface, consent *model.Consent) error {
	return m.Called(ctx, tx, consent).Error(0)
}

func (m *MockConsentStore) SupersedeCurrent(ctx context.Context, tx dbmodel.TxInterface, personID int64, newConsentID string, now int64) (int64, error) {
	args := m.Called(ctx, tx, personID, newConsentID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConsentStore) Renew(ctx context.Context, tx dbmodel.TxInterface, consent *model.Consent) (int64, error) {
	args := m.Called(ctx, tx, consent)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConsentStore) Revoke(ctx context.Context, tx dbmodel.TxInterface, consentID, revokedBy string, now int64) (int64, error) {
	args := m.Called(ctx, tx, consentID, revokedBy, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConsentStore) ReplaceSelections(ctx context.Context, tx dbmodel.TxInterface, consentID string, result scope.Result) error {
	return m.Called(ctx, tx, consentID, result).Error(0)
}

func (m *MockConsentStore) ReplaceGrants(ctx context.Context, tx dbmodel.TxInterface, personID int64, consentID string, allowed []int64, now int64) error {
	return m.Called(ctx, tx, personID, consentID, allowed, now).Error(0)
}

func (m *MockConsentStore) ClearGrants(ctx context.Context, tx dbmodel.TxInterface, personID int64) error {
	return m.Called(ctx, tx, personID).Error(0)
}

func (m *MockConsentStore) ClearGrantsForConsent(ctx context.Context, tx dbmodel.TxInterface, consentID string) error {
	return m.Called(ctx, tx, consentID).Error(0)
}
