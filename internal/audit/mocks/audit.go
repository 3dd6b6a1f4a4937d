// Package mocks provides testify mocks for the audit store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/case-consent-api/internal/audit/model"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
)

// MockAuditStore mocks audit.AuditStore.
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Append(ctx context.Context, tx dbmodel.TxInterface, event *model.Event) error {
	return m.Called(ctx, tx, event).Error(0)
}

func (m *MockAuditStore) ListByEntity(ctx context.Context, entityType, entityRef string, limit int) ([]model.Event, error) {
	args := m.Called(ctx, entityType, entityRef, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Event), args.Error(1)
}

// Actions returns the audit actions appended so far, in order.
func (m *MockAuditStore) Actions() []string {
	var actions []string
	for _, call := range m.Calls {
		if call.Method == "Append" {
			actions = append(actions, call.Arguments.Get(2).(*model.Event).Action)
		}
	}
	return actions
}
