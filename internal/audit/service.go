package audit

import (
	"context"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/audit/model"
	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/stores"
)

// AuditServiceInterface exposes audit reads to staff.
type AuditServiceInterface interface {
	ListByEntity(ctx context.Context, actx access.Context, entityType, entityRef string, limit int) (*model.ListResponse, *serviceerror.ServiceError)
}

type auditService struct {
	stores *stores.StoreRegistry
	logger *log.Logger
}

func newAuditService(registry *stores.StoreRegistry) AuditServiceInterface {
	return &auditService{
		stores: registry,
		logger: log.GetLogger().With(log.String(log.LoggerKeyComponentName, "AuditService")),
	}
}

// ListByEntity returns the most recent events recorded against one entity.
func (s *auditService) ListByEntity(
	ctx context.Context,
	actx access.Context,
	entityType, entityRef string,
	limit int,
) (*model.ListResponse, *serviceerror.ServiceError) {
	if _, err := actx.RequireConsentManager(); err != nil {
		return nil, err
	}
	switch entityType {
	case model.EntityTypeConsent, model.EntityTypeConsentRequest, model.EntityTypePerson:
	default:
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "entityType must be consent, consent_request or person")
	}
	if entityRef == "" {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "entityRef is required")
	}
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	store := s.stores.Audit.(AuditStore)
	events, err := store.ListByEntity(ctx, entityType, entityRef, limit)
	if err != nil {
		s.logger.Error("Failed to list audit events", log.String("entity_type", entityType), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	return &model.ListResponse{Data: events}, nil
}
