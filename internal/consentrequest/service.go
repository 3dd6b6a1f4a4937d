package consentrequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/audit"
	auditmodel "github.com/wso2/case-consent-api/internal/audit/model"
	"github.com/wso2/case-consent-api/internal/consent"
	consentmodel "github.com/wso2/case-consent-api/internal/consent/model"
	"github.com/wso2/case-consent-api/internal/consentrequest/model"
	"github.com/wso2/case-consent-api/internal/scope"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/constants"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/stores"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

var errAlreadyResolved = errors.New("consent request already resolved")

// ConsentRequestServiceInterface defines the consent request workflow.
type ConsentRequestServiceInterface interface {
	// Create opens a request, or returns the open one for the same person and organization.
	// The boolean reports whether a new request was stored.
	Create(ctx context.Context, actx access.Context, input model.CreateInput) (*model.ConsentRequest, bool, *serviceerror.ServiceError)
	Approve(ctx context.Context, actx access.Context, input model.ApproveInput) (*model.ApproveResult, *serviceerror.ServiceError)
	Deny(ctx context.Context, actx access.Context, input model.DenyInput) (*model.ConsentRequest, *serviceerror.ServiceError)
	Get(ctx context.Context, actx access.Context, requestID string) (*model.ConsentRequest, *serviceerror.ServiceError)
	List(ctx context.Context, actx access.Context, filter model.ListFilter) (*model.ListResponse, *serviceerror.ServiceError)
}

type consentRequestService struct {
	stores         *stores.StoreRegistry
	consentService consent.ConsentServiceInterface
	viewCache      cache.ViewCacheInterface
	now            func() int64
	logger         *log.Logger
}

// NewConsentRequestService creates the consent request service.
func NewConsentRequestService(
	registry *stores.StoreRegistry,
	consentService consent.ConsentServiceInterface,
	viewCache cache.ViewCacheInterface,
) ConsentRequestServiceInterface {
	if viewCache == nil {
		viewCache = cache.NewNoopViewCache()
	}
	return &consentRequestService{
		stores:         registry,
		consentService: consentService,
		viewCache:      viewCache,
		now:            utils.GetCurrentTimeMillis,
		logger:         log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ConsentRequestService")),
	}
}

func (s *consentRequestService) requestStore() ConsentRequestStore {
	return s.stores.ConsentRequest.(ConsentRequestStore)
}

func (s *consentRequestService) consentStore() consent.ConsentStore {
	return s.stores.Consent.(consent.ConsentStore)
}

func (s *consentRequestService) auditStore() audit.AuditStore {
	return s.stores.Audit.(audit.AuditStore)
}

// Create opens a consent request on behalf of the caller's selected organization.
func (s *consentRequestService) Create(
	ctx context.Context,
	actx access.Context,
	input model.CreateInput,
) (*model.ConsentRequest, bool, *serviceerror.ServiceError) {
	if err := actx.RequireProfile(); err != nil {
		return nil, false, err
	}
	orgID, svcErr := actx.RequireOrganization()
	if svcErr != nil {
		return nil, false, svcErr
	}
	if input.Purpose == "" {
		return nil, false, serviceerror.CustomServiceError(serviceerror.ValidationError, "purpose is required")
	}
	if input.PersonID <= 0 {
		return nil, false, serviceerror.CustomServiceError(serviceerror.ValidationError, "person ID is required")
	}

	exists, err := s.consentStore().PersonExists(ctx, input.PersonID)
	if err != nil {
		s.logger.Error("Failed to check person", log.Int64("person_id", input.PersonID), log.Error(err))
		return nil, false, serviceerror.New(serviceerror.DatabaseError)
	}
	if !exists {
		return nil, false, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
			fmt.Sprintf("person not found: %d", input.PersonID))
	}

	store := s.requestStore()
	existing, err := store.GetPending(ctx, input.PersonID, orgID)
	if err != nil {
		s.logger.Error("Failed to look up pending request", log.Int64("person_id", input.PersonID), log.Error(err))
		return nil, false, serviceerror.New(serviceerror.DatabaseError)
	}
	if existing != nil {
		return existing, false, nil
	}

	scopes := input.RequestedScopes
	if scopes == nil {
		scopes = []string{}
	}
	request := &model.ConsentRequest{
		ID:              utils.GenerateUUID(),
		PersonID:        input.PersonID,
		RequestingOrgID: orgID,
		Purpose:         input.Purpose,
		RequestedScopes: scopes,
		Status:          model.StatusPending,
		RequestedBy:     actx.ProfileID,
		RequestedTime:   s.now(),
	}
	event := &auditmodel.Event{
		ActorProfileID: actx.ProfileID,
		Action:         auditmodel.ActionConsentRequestCreated,
		EntityType:     auditmodel.EntityTypeConsentRequest,
		EntityRef:      request.ID,
		Meta: map[string]interface{}{
			"person_id":         request.PersonID,
			"requesting_org_id": orgID,
			"requested_scopes":  scopes,
		},
		OrgID:       &orgID,
		CreatedTime: request.RequestedTime,
	}

	auditStore := s.auditStore()
	err = s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return store.Create(ctx, tx, request)
		},
		func(tx dbmodel.TxInterface) error {
			return auditStore.Append(ctx, tx, event)
		},
	})
	if errors.Is(err, ErrPendingRequestExists) {
		// Lost a race with a concurrent create for the same pair.
		existing, err = store.GetPending(ctx, input.PersonID, orgID)
		if err != nil || existing == nil {
			s.logger.Error("Failed to load concurrent pending request",
				log.Int64("person_id", input.PersonID), log.Error(err))
			return nil, false, serviceerror.New(serviceerror.DatabaseError)
		}
		return existing, false, nil
	}
	if err != nil {
		s.logger.Error("Failed to create consent request", log.Int64("person_id", input.PersonID), log.Error(err))
		return nil, false, serviceerror.New(serviceerror.DatabaseError)
	}

	s.logger.Info("Consent request created",
		log.String("request_id", request.ID),
		log.Int64("person_id", request.PersonID),
		log.Int64("org_id", orgID))
	s.revalidateQueue(ctx)
	return request, true, nil
}

// Approve resolves a pending request and saves the resulting consent in the same transaction.
func (s *consentRequestService) Approve(
	ctx context.Context,
	actx access.Context,
	input model.ApproveInput,
) (*model.ApproveResult, *serviceerror.ServiceError) {
	if _, err := actx.RequireConsentManager(); err != nil {
		return nil, err
	}
	request, svcErr := s.loadPending(ctx, input.RequestID)
	if svcErr != nil {
		return nil, svcErr
	}

	saveInput, svcErr := s.approvedConsent(ctx, request, input)
	if svcErr != nil {
		return nil, svcErr
	}
	prepared, svcErr := s.consentService.PrepareSave(ctx, actx, saveInput, consent.SaveOptions{
		AuditMeta: map[string]interface{}{"consent_request_id": request.ID},
	})
	if svcErr != nil {
		return nil, svcErr
	}

	consentID := prepared.Consent.ID
	decision := model.Decision{
		Status:             model.StatusApproved,
		DecisionTime:       prepared.Consent.CreatedTime,
		DecisionBy:         actx.ProfileID,
		DecisionReason:     optional(input.Reason),
		ResultingConsentID: &consentID,
	}
	event := s.decisionEvent(actx, request, decision, auditmodel.ActionRequestApproved)
	event.Meta["consent_id"] = consentID
	event.Meta["allowed_org_ids"] = prepared.Consent.AllowedOrgIDs

	store := s.requestStore()
	auditStore := s.auditStore()
	steps := append(prepared.Steps,
		func(tx dbmodel.TxInterface) error {
			return resolve(ctx, store, tx, request.ID, decision)
		},
		func(tx dbmodel.TxInterface) error {
			return auditStore.Append(ctx, tx, event)
		},
	)
	if err := s.stores.ExecuteTransaction(ctx, steps); err != nil {
		if errors.Is(err, errAlreadyResolved) {
			return nil, serviceerror.New(serviceerror.AlreadyResolvedError)
		}
		s.logger.Error("Failed to approve consent request", log.String("request_id", request.ID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}

	decision.Apply(request)
	s.logger.Info("Consent request approved",
		log.String("request_id", request.ID),
		log.String("consent_id", consentID),
		log.String("consent_action", prepared.Action))
	s.consentService.Revalidate(ctx, request.PersonID)
	return &model.ApproveResult{Request: request, Consent: prepared.Consent}, nil
}

// approvedConsent builds the consent an approval saves. An explicit scope from the approver
// wins; otherwise the requesting organization joins the person's current allow-list.
func (s *consentRequestService) approvedConsent(
	ctx context.Context,
	request *model.ConsentRequest,
	input model.ApproveInput,
) (consentmodel.SaveInput, *serviceerror.ServiceError) {
	saveInput := consentmodel.SaveInput{
		PersonID:         request.PersonID,
		Method:           input.Method,
		Notes:            input.Notes,
		PolicyVersion:    input.PolicyVersion,
		AttestedByStaff:  input.AttestedByStaff,
		AttestedByClient: input.AttestedByClient,
	}
	if input.Scope != nil {
		saveInput.Scope = *input.Scope
		saveInput.AllowedOrgIDs = input.AllowedOrgIDs
		return saveInput, nil
	}

	active, svcErr := s.consentService.ActiveConsent(ctx, request.PersonID)
	if svcErr != nil {
		return saveInput, svcErr
	}
	if active != nil && active.Scope == scope.AllOrgs {
		saveInput.Scope = scope.AllOrgs
		return saveInput, nil
	}
	saveInput.Scope = scope.SelectedOrgs
	saveInput.AllowedOrgIDs = []int64{request.RequestingOrgID}
	if active != nil {
		saveInput.AllowedOrgIDs = scope.Merge(saveInput.AllowedOrgIDs, active.AllowedOrgIDs)
	}
	return saveInput, nil
}

// Deny resolves a pending request without touching any consent.
func (s *consentRequestService) Deny(
	ctx context.Context,
	actx access.Context,
	input model.DenyInput,
) (*model.ConsentRequest, *serviceerror.ServiceError) {
	if _, err := actx.RequireConsentManager(); err != nil {
		return nil, err
	}
	request, svcErr := s.loadPending(ctx, input.RequestID)
	if svcErr != nil {
		return nil, svcErr
	}

	decision := model.Decision{
		Status:         model.StatusDenied,
		DecisionTime:   s.now(),
		DecisionBy:     actx.ProfileID,
		DecisionReason: optional(input.Reason),
	}
	event := s.decisionEvent(actx, request, decision, auditmodel.ActionRequestDenied)

	store := s.requestStore()
	auditStore := s.auditStore()
	err := s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return resolve(ctx, store, tx, request.ID, decision)
		},
		func(tx dbmodel.TxInterface) error {
			return auditStore.Append(ctx, tx, event)
		},
	})
	if errors.Is(err, errAlreadyResolved) {
		return nil, serviceerror.New(serviceerror.AlreadyResolvedError)
	}
	if err != nil {
		s.logger.Error("Failed to deny consent request", log.String("request_id", request.ID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}

	decision.Apply(request)
	s.logger.Info("Consent request denied", log.String("request_id", request.ID))
	s.revalidateQueue(ctx)
	return request, nil
}

// Get returns a request to the person it concerns, the requesting organization or a consent manager.
func (s *consentRequestService) Get(
	ctx context.Context,
	actx access.Context,
	requestID string,
) (*model.ConsentRequest, *serviceerror.ServiceError) {
	if err := actx.RequireProfile(); err != nil {
		return nil, err
	}
	request, err := s.requestStore().GetByID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to load consent request", log.String("request_id", requestID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	if request == nil {
		return nil, requestNotFound(requestID)
	}
	switch {
	case actx.IsPerson(request.PersonID):
	case actx.OrganizationID != nil && *actx.OrganizationID == request.RequestingOrgID:
	case actx.OrganizationID != nil && actx.CanManageConsents():
	default:
		return nil, serviceerror.New(serviceerror.PermissionError)
	}
	return request, nil
}

// List returns the request queue. Consent managers see every request; a person sees only their own.
func (s *consentRequestService) List(
	ctx context.Context,
	actx access.Context,
	filter model.ListFilter,
) (*model.ListResponse, *serviceerror.ServiceError) {
	if err := actx.RequireProfile(); err != nil {
		return nil, err
	}
	if _, err := actx.RequireConsentManager(); err != nil {
		if actx.PersonID == nil || (filter.PersonID != nil && *filter.PersonID != *actx.PersonID) {
			return nil, serviceerror.New(serviceerror.PermissionError)
		}
		filter.PersonID = actx.PersonID
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"status must be one of: pending, approved, denied")
	}
	if filter.Limit == 0 {
		filter.Limit = constants.DefaultPageSize
	}
	if err := utils.ValidatePagination(filter.Limit, filter.Offset); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	key := queuePageKey(filter)
	if page := s.cachedPage(ctx, key); page != nil {
		return page, nil
	}

	requests, total, err := s.requestStore().List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list consent requests", log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	page := &model.ListResponse{Data: requests, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	if data, err := json.Marshal(page); err == nil {
		if err := s.viewCache.SetQueuePage(ctx, key, data); err != nil {
			s.logger.Warn("Failed to cache consent queue page", log.Error(err))
		}
	}
	return page, nil
}

func queuePageKey(filter model.ListFilter) string {
	var personID int64
	if filter.PersonID != nil {
		personID = *filter.PersonID
	}
	return fmt.Sprintf("status=%s:person=%d:limit=%d:offset=%d", filter.Status, personID, filter.Limit, filter.Offset)
}

// cachedPage returns nil on a miss or when the cache cannot be read.
func (s *consentRequestService) cachedPage(ctx context.Context, key string) *model.ListResponse {
	data, ok, err := s.viewCache.GetQueuePage(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read cached consent queue page", log.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var page model.ListResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return nil
	}
	return &page
}

func (s *consentRequestService) loadPending(ctx context.Context, requestID string) (*model.ConsentRequest, *serviceerror.ServiceError) {
	request, err := s.requestStore().GetByID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to load consent request", log.String("request_id", requestID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	if request == nil {
		return nil, requestNotFound(requestID)
	}
	if request.Status != model.StatusPending {
		return nil, serviceerror.New(serviceerror.AlreadyResolvedError)
	}
	return request, nil
}

func (s *consentRequestService) decisionEvent(
	actx access.Context,
	request *model.ConsentRequest,
	decision model.Decision,
	action string,
) *auditmodel.Event {
	meta := map[string]interface{}{
		"person_id":         request.PersonID,
		"requesting_org_id": request.RequestingOrgID,
	}
	if decision.DecisionReason != nil {
		meta["reason"] = *decision.DecisionReason
	}
	return &auditmodel.Event{
		ActorProfileID: actx.ProfileID,
		Action:         action,
		EntityType:     auditmodel.EntityTypeConsentRequest,
		EntityRef:      request.ID,
		Meta:           meta,
		OrgID:          actx.OrganizationID,
		CreatedTime:    decision.DecisionTime,
	}
}

func (s *consentRequestService) revalidateQueue(ctx context.Context) {
	if err := s.viewCache.RevalidateQueue(ctx); err != nil {
		s.logger.Warn("Failed to revalidate consent queue", log.Error(err))
	}
}

func resolve(ctx context.Context, store ConsentRequestStore, tx dbmodel.TxInterface, requestID string, decision model.Decision) error {
	rows, err := store.Resolve(ctx, tx, requestID, decision)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errAlreadyResolved
	}
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func requestNotFound(requestID string) *serviceerror.ServiceError {
	return serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
		fmt.Sprintf("consent request not found: %s", requestID))
}
