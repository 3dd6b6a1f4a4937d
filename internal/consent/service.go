package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/audit"
	auditmodel "github.com/wso2/case-consent-api/internal/audit/model"
	"github.com/wso2/case-consent-api/internal/consent/model"
	"github.com/wso2/case-consent-api/internal/organization"
	orgmodel "github.com/wso2/case-consent-api/internal/organization/model"
	"github.com/wso2/case-consent-api/internal/scope"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/config"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/stores"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

// SystemActor is recorded as the actor of changes made by maintenance jobs.
const SystemActor = "system"

const defaultValidity = 365 * 24 * time.Hour

var errConsentChanged = errors.New("consent changed concurrently")

// ConsentServiceInterface defines the consent read and mutation operations.
// Every call takes the caller's access context explicitly.
type ConsentServiceInterface interface {
	GetCurrent(ctx context.Context, actx access.Context, personID int64) (*model.ConsentView, *serviceerror.ServiceError)
	ListHistory(ctx context.Context, actx access.Context, personID int64) (*model.HistoryResponse, *serviceerror.ServiceError)
	CheckVisibility(ctx context.Context, actx access.Context, personID, orgID int64) (*model.VisibilityResponse, *serviceerror.ServiceError)
	Save(ctx context.Context, actx access.Context, input model.SaveInput) (*model.Consent, *serviceerror.ServiceError)
	Override(ctx context.Context, actx access.Context, input model.SaveInput) (*model.Consent, *serviceerror.ServiceError)
	Renew(ctx context.Context, actx access.Context, input model.RenewInput) (*model.Consent, *serviceerror.ServiceError)
	Revoke(ctx context.Context, actx access.Context, input model.RevokeInput) (*model.Consent, *serviceerror.ServiceError)
	PrepareSave(ctx context.Context, actx access.Context, input model.SaveInput, opts SaveOptions) (*PreparedSave, *serviceerror.ServiceError)
	ActiveConsent(ctx context.Context, personID int64) (*model.Consent, *serviceerror.ServiceError)
	SweepExpired(ctx context.Context, now int64) (*model.SweepResult, *serviceerror.ServiceError)
	Revalidate(ctx context.Context, personID int64)
}

// SaveOptions tunes how PrepareSave authorizes and audits a save.
type SaveOptions struct {
	// Override requires consent-management rights and an attestation.
	Override bool
	// AuditMeta is merged into the consent audit event.
	AuditMeta map[string]interface{}
}

// PreparedSave holds a validated consent and the transaction steps that persist it.
// Callers may append their own steps before running them in one transaction.
type PreparedSave struct {
	Consent  *model.Consent
	Previous *model.Consent
	Action   string
	Steps    []func(tx dbmodel.TxInterface) error
}

type consentService struct {
	stores     *stores.StoreRegistry
	orgService organization.OrganizationServiceInterface
	viewCache  cache.ViewCacheInterface
	cfg        config.ConsentConfig
	now        func() int64
	logger     *log.Logger
}

// NewConsentService creates the consent service.
func NewConsentService(
	registry *stores.StoreRegistry,
	orgService organization.OrganizationServiceInterface,
	viewCache cache.ViewCacheInterface,
	cfg config.ConsentConfig,
) ConsentServiceInterface {
	if viewCache == nil {
		viewCache = cache.NewNoopViewCache()
	}
	if cfg.DefaultValidity <= 0 {
		cfg.DefaultValidity = defaultValidity
	}
	return &consentService{
		stores:     registry,
		orgService: orgService,
		viewCache:  viewCache,
		cfg:        cfg,
		now:        utils.GetCurrentTimeMillis,
		logger:     log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ConsentService")),
	}
}

func (s *consentService) consentStore() ConsentStore {
	return s.stores.Consent.(ConsentStore)
}

func (s *consentService) auditStore() audit.AuditStore {
	return s.stores.Audit.(audit.AuditStore)
}

// canRead allows the person themselves or staff working inside an organization.
func canRead(actx access.Context, personID int64) *serviceerror.ServiceError {
	if err := actx.RequireProfile(); err != nil {
		return err
	}
	if actx.IsPerson(personID) || actx.OrganizationID != nil {
		return nil
	}
	return serviceerror.New(serviceerror.PermissionError)
}

// canMutate allows the person themselves or staff who may manage consents for their organization.
func canMutate(actx access.Context, personID int64) *serviceerror.ServiceError {
	if err := actx.RequireProfile(); err != nil {
		return err
	}
	if actx.IsPerson(personID) {
		return nil
	}
	if _, err := actx.RequireConsentManager(); err != nil {
		return err
	}
	return nil
}

// GetCurrent loads the person's current consent and the participating roster concurrently.
func (s *consentService) GetCurrent(
	ctx context.Context,
	actx access.Context,
	personID int64,
) (*model.ConsentView, *serviceerror.ServiceError) {
	if err := canRead(actx, personID); err != nil {
		return nil, err
	}
	now := s.now()

	if cached, ok := s.cachedView(ctx, personID); ok {
		if cached.Consent != nil {
			cached.Consent.Status = cached.Consent.DeriveStatus(now)
		}
		return cached, nil
	}

	var (
		current *model.Consent
		roster  []orgmodel.Organization
		exists  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exists, err = s.consentStore().PersonExists(gctx, personID)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = s.loadCurrent(gctx, personID)
		return err
	})
	g.Go(func() error {
		orgs, svcErr := s.orgService.ListParticipating(gctx, nil)
		if svcErr != nil {
			return fmt.Errorf("roster: %s", svcErr.ErrorDescription)
		}
		roster = orgs
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load consent view", log.Int64("person_id", personID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	if !exists {
		return nil, personNotFound(personID)
	}
	if current != nil {
		current.Status = current.DeriveStatus(now)
	}

	view := &model.ConsentView{PersonID: personID, Consent: current, Organizations: roster}
	s.storeView(ctx, view)
	return view, nil
}

func (s *consentService) loadCurrent(ctx context.Context, personID int64) (*model.Consent, error) {
	store := s.consentStore()
	current, err := store.GetCurrent(ctx, personID)
	if err != nil || current == nil {
		return nil, err
	}
	selections, err := store.GetSelections(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	current.ApplySelections(selections)
	return current, nil
}

func (s *consentService) cachedView(ctx context.Context, personID int64) (*model.ConsentView, bool) {
	data, ok, err := s.viewCache.GetPersonView(ctx, personID)
	if err != nil {
		s.logger.Warn("Consent view cache read failed", log.Int64("person_id", personID), log.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var view model.ConsentView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, false
	}
	return &view, true
}

func (s *consentService) storeView(ctx context.Context, view *model.ConsentView) {
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.viewCache.SetPersonView(ctx, view.PersonID, data); err != nil {
		s.logger.Warn("Consent view cache write failed", log.Int64("person_id", view.PersonID), log.Error(err))
	}
}

// ListHistory returns every consent recorded for the person, newest first.
func (s *consentService) ListHistory(
	ctx context.Context,
	actx access.Context,
	personID int64,
) (*model.HistoryResponse, *serviceerror.ServiceError) {
	if err := canRead(actx, personID); err != nil {
		return nil, err
	}
	consents, err := s.consentStore().ListByPerson(ctx, personID)
	if err != nil {
		s.logger.Error("Failed to list consent history", log.Int64("person_id", personID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	now := s.now()
	for i := range consents {
		consents[i].Status = consents[i].DeriveStatus(now)
	}
	return &model.HistoryResponse{Data: consents}, nil
}

// CheckVisibility reports whether orgID currently holds a live grant on the person's record.
func (s *consentService) CheckVisibility(
	ctx context.Context,
	actx access.Context,
	personID, orgID int64,
) (*model.VisibilityResponse, *serviceerror.ServiceError) {
	if err := actx.RequireProfile(); err != nil {
		return nil, err
	}
	if _, err := actx.RequireOrganization(); err != nil {
		return nil, err
	}
	if personID <= 0 || orgID <= 0 {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "person ID and organization ID are required")
	}
	consentID, err := s.consentStore().GetActiveGrant(ctx, personID, orgID, s.now())
	if err != nil {
		s.logger.Error("Failed to check visibility", log.Int64("person_id", personID), log.Int64("org_id", orgID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	return &model.VisibilityResponse{
		PersonID:  personID,
		OrgID:     orgID,
		Visible:   consentID != nil,
		ConsentID: consentID,
	}, nil
}

// Save records a new consent decision made by the person or by staff on their behalf.
func (s *consentService) Save(
	ctx context.Context,
	actx access.Context,
	input model.SaveInput,
) (*model.Consent, *serviceerror.ServiceError) {
	return s.saveAndCommit(ctx, actx, input, SaveOptions{})
}

// Override records a staff override that must carry an attestation.
func (s *consentService) Override(
	ctx context.Context,
	actx access.Context,
	input model.SaveInput,
) (*model.Consent, *serviceerror.ServiceError) {
	return s.saveAndCommit(ctx, actx, input, SaveOptions{Override: true})
}

func (s *consentService) saveAndCommit(
	ctx context.Context,
	actx access.Context,
	input model.SaveInput,
	opts SaveOptions,
) (*model.Consent, *serviceerror.ServiceError) {
	prepared, svcErr := s.PrepareSave(ctx, actx, input, opts)
	if svcErr != nil {
		return nil, svcErr
	}
	if err := s.stores.ExecuteTransaction(ctx, prepared.Steps); err != nil {
		s.logger.Error("Failed to save consent",
			log.Int64("person_id", input.PersonID),
			log.String("consent_id", prepared.Consent.ID),
			log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	s.logger.Info("Consent saved",
		log.Int64("person_id", input.PersonID),
		log.String("consent_id", prepared.Consent.ID),
		log.String("action", prepared.Action),
		log.Bool("override", opts.Override))
	s.Revalidate(ctx, input.PersonID)
	return prepared.Consent, nil
}

// PrepareSave authorizes and validates a save, evaluates the scope against the current
// roster and returns the steps that persist it.
func (s *consentService) PrepareSave(
	ctx context.Context,
	actx access.Context,
	input model.SaveInput,
	opts SaveOptions,
) (*PreparedSave, *serviceerror.ServiceError) {
	if opts.Override {
		if _, err := actx.RequireConsentManager(); err != nil {
			return nil, err
		}
		if s.cfg.RequireAttestationOnOverride && !input.AttestedByStaff && !input.AttestedByClient {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
				"an override must be attested by staff or by the client")
		}
	} else if err := canMutate(actx, input.PersonID); err != nil {
		return nil, err
	}
	if input.PersonID <= 0 {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "person ID is required")
	}
	if !input.Scope.IsValid() {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, scope.ErrInvalidScope.Error())
	}

	store := s.consentStore()
	exists, err := store.PersonExists(ctx, input.PersonID)
	if err != nil {
		s.logger.Error("Failed to check person", log.Int64("person_id", input.PersonID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	if !exists {
		return nil, personNotFound(input.PersonID)
	}

	result, svcErr := s.evaluate(ctx, input.Scope, input.AllowedOrgIDs)
	if svcErr != nil {
		return nil, svcErr
	}

	previous, err := store.GetCurrent(ctx, input.PersonID)
	if err != nil {
		s.logger.Error("Failed to load current consent", log.Int64("person_id", input.PersonID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}

	now := s.now()
	expires := now + s.cfg.DefaultValidity.Milliseconds()
	consent := &model.Consent{
		ID:               utils.GenerateUUID(),
		PersonID:         input.PersonID,
		Scope:            input.Scope,
		Status:           model.StatusActive,
		CapturedMethod:   s.method(input.Method, actx, input.PersonID),
		CapturedOrgID:    actx.OrganizationID,
		AttestedByStaff:  input.AttestedByStaff,
		AttestedByClient: input.AttestedByClient,
		PolicyVersion:    s.policyVersion(input.PolicyVersion),
		CreatedTime:      now,
		UpdatedTime:      now,
		ExpiresTime:      &expires,
		CreatedBy:        actx.ProfileID,
		AllowedOrgIDs:    result.Allowed,
		BlockedOrgIDs:    result.Blocked,
	}
	if input.Notes != "" {
		notes := input.Notes
		consent.Notes = &notes
	}

	action := auditmodel.ActionConsentCreated
	meta := map[string]interface{}{
		"person_id":       input.PersonID,
		"scope":           string(input.Scope),
		"allowed_org_ids": result.Allowed,
	}
	if previous != nil {
		action = auditmodel.ActionConsentUpdated
		meta["previous_consent_id"] = previous.ID
	}
	if opts.Override {
		meta["override"] = true
	}
	for k, v := range opts.AuditMeta {
		meta[k] = v
	}
	event := &auditmodel.Event{
		ActorProfileID: actx.ProfileID,
		Action:         action,
		EntityType:     auditmodel.EntityTypeConsent,
		EntityRef:      consent.ID,
		Meta:           meta,
		OrgID:          actx.OrganizationID,
		CreatedTime:    now,
	}

	auditStore := s.auditStore()
	steps := []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			_, err := store.SupersedeCurrent(ctx, tx, input.PersonID, consent.ID, now)
			return err
		},
		func(tx dbmodel.TxInterface) error {
			return store.Create(ctx, tx, consent)
		},
		func(tx dbmodel.TxInterface) error {
			return store.ReplaceSelections(ctx, tx, consent.ID, result)
		},
		func(tx dbmodel.TxInterface) error {
			return store.ReplaceGrants(ctx, tx, input.PersonID, consent.ID, result.Allowed, now)
		},
		func(tx dbmodel.TxInterface) error {
			return auditStore.Append(ctx, tx, event)
		},
	}

	return &PreparedSave{Consent: consent, Previous: previous, Action: action, Steps: steps}, nil
}

// Renew extends a current consent's expiry and re-stamps its attestations. The scope is
// kept unless the input changes it, and expiry never moves earlier.
func (s *consentService) Renew(
	ctx context.Context,
	actx access.Context,
	input model.RenewInput,
) (*model.Consent, *serviceerror.ServiceError) {
	if err := actx.RequireProfile(); err != nil {
		return nil, err
	}
	store := s.consentStore()
	existing, err := store.GetByID(ctx, input.ConsentID)
	if err != nil {
		s.logger.Error("Failed to load consent", log.String("consent_id", input.ConsentID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	if existing == nil || (input.PersonID > 0 && existing.PersonID != input.PersonID) {
		return nil, consentNotFound(input.ConsentID)
	}
	if err := canMutate(actx, existing.PersonID); err != nil {
		return nil, err
	}
	if !existing.IsCurrent() {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"only the current consent can be renewed")
	}

	selections, err := store.GetSelections(ctx, existing.ID)
	if err != nil {
		s.logger.Error("Failed to load consent selections", log.String("consent_id", existing.ID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	existing.ApplySelections(selections)

	renewed := *existing
	if input.Scope != nil {
		if !input.Scope.IsValid() {
			return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, scope.ErrInvalidScope.Error())
		}
		renewed.Scope = *input.Scope
	}
	explicit := existing.AllowedOrgIDs
	if input.AllowedOrgIDs != nil {
		explicit = input.AllowedOrgIDs
	}
	result, svcErr := s.evaluate(ctx, renewed.Scope, explicit)
	if svcErr != nil {
		return nil, svcErr
	}

	now := s.now()
	expires := now + s.cfg.DefaultValidity.Milliseconds()
	if existing.ExpiresTime != nil && *existing.ExpiresTime > expires {
		expires = *existing.ExpiresTime
	}
	renewed.ExpiresTime = &expires
	renewed.AttestedByStaff = input.AttestedByStaff
	renewed.AttestedByClient = input.AttestedByClient
	renewed.PolicyVersion = s.policyVersion(input.PolicyVersion)
	renewed.UpdatedTime = now
	renewed.AllowedOrgIDs = result.Allowed
	renewed.BlockedOrgIDs = result.Blocked
	renewed.Status = renewed.DeriveStatus(now)

	event := &auditmodel.Event{
		ActorProfileID: actx.ProfileID,
		Action:         auditmodel.ActionConsentRenewed,
		EntityType:     auditmodel.EntityTypeConsent,
		EntityRef:      renewed.ID,
		Meta: map[string]interface{}{
			"person_id":        renewed.PersonID,
			"scope":            string(renewed.Scope),
			"allowed_org_ids":  result.Allowed,
			"previous_expires": existing.ExpiresTime,
			"expires":          expires,
		},
		OrgID:       actx.OrganizationID,
		CreatedTime: now,
	}

	auditStore := s.auditStore()
	err = s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			rows, err := store.Renew(ctx, tx, &renewed)
			if err == nil && rows == 0 {
				return errConsentChanged
			}
			return err
		},
		func(tx dbmodel.TxInterface) error {
			return store.ReplaceSelections(ctx, tx, renewed.ID, result)
		},
		func(tx dbmodel.TxInterface) error {
			return store.ReplaceGrants(ctx, tx, renewed.PersonID, renewed.ID, result.Allowed, now)
		},
		func(tx dbmodel.TxInterface) error {
			return auditStore.Append(ctx, tx, event)
		},
	})
	if errors.Is(err, errConsentChanged) {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			"the consent was changed by someone else, reload and try again")
	}
	if err != nil {
		s.logger.Error("Failed to renew consent", log.String("consent_id", renewed.ID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}

	s.logger.Info("Consent renewed", log.String("consent_id", renewed.ID), log.Int64("expires_time", expires))
	s.Revalidate(ctx, renewed.PersonID)
	return &renewed, nil
}

// Revoke ends the person's active consent and removes every partner grant immediately.
func (s *consentService) Revoke(
	ctx context.Context,
	actx access.Context,
	input model.RevokeInput,
) (*model.Consent, *serviceerror.ServiceError) {
	if err := canMutate(actx, input.PersonID); err != nil {
		return nil, err
	}
	store := s.consentStore()
	current, err := store.GetCurrent(ctx, input.PersonID)
	if err != nil {
		s.logger.Error("Failed to load current consent", log.Int64("person_id", input.PersonID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	now := s.now()
	if current == nil || current.DeriveStatus(now) != model.StatusActive {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
			fmt.Sprintf("no active consent found for person %d", input.PersonID))
	}

	action := auditmodel.ActionConsentRevoked
	if !actx.IsPerson(input.PersonID) {
		action = auditmodel.ActionConsentRevokedAdmin
	}
	meta := map[string]interface{}{"person_id": input.PersonID}
	if input.Reason != "" {
		meta["reason"] = input.Reason
	}
	event := &auditmodel.Event{
		ActorProfileID: actx.ProfileID,
		Action:         action,
		EntityType:     auditmodel.EntityTypeConsent,
		EntityRef:      current.ID,
		Meta:           meta,
		OrgID:          actx.OrganizationID,
		CreatedTime:    now,
	}

	auditStore := s.auditStore()
	err = s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			rows, err := store.Revoke(ctx, tx, current.ID, actx.ProfileID, now)
			if err == nil && rows == 0 {
				return errConsentChanged
			}
			return err
		},
		func(tx dbmodel.TxInterface) error {
			return store.ClearGrants(ctx, tx, input.PersonID)
		},
		func(tx dbmodel.TxInterface) error {
			return auditStore.Append(ctx, tx, event)
		},
	})
	if errors.Is(err, errConsentChanged) {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
			fmt.Sprintf("no active consent found for person %d", input.PersonID))
	}
	if err != nil {
		s.logger.Error("Failed to revoke consent", log.String("consent_id", current.ID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}

	revokedBy := actx.ProfileID
	current.RevokedTime = &now
	current.RevokedBy = &revokedBy
	current.UpdatedTime = now
	current.Status = model.StatusRevoked

	s.logger.Info("Consent revoked", log.String("consent_id", current.ID), log.String("action", action))
	s.Revalidate(ctx, input.PersonID)
	return current, nil
}

// ActiveConsent returns the person's consent with its selections when it is active, or nil.
func (s *consentService) ActiveConsent(ctx context.Context, personID int64) (*model.Consent, *serviceerror.ServiceError) {
	current, err := s.loadCurrent(ctx, personID)
	if err != nil {
		s.logger.Error("Failed to load current consent", log.Int64("person_id", personID), log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}
	if current == nil {
		return nil, nil
	}
	current.Status = current.DeriveStatus(s.now())
	if current.Status != model.StatusActive {
		return nil, nil
	}
	return current, nil
}

// SweepExpired clears the grants of consents that expired at or before now.
// Each consent is swept in its own transaction so one failure does not block the rest.
func (s *consentService) SweepExpired(ctx context.Context, now int64) (*model.SweepResult, *serviceerror.ServiceError) {
	store := s.consentStore()
	expired, err := store.ListExpiredWithGrants(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list expired consents", log.Error(err))
		return nil, serviceerror.New(serviceerror.DatabaseError)
	}

	auditStore := s.auditStore()
	result := &model.SweepResult{ConsentIDs: []string{}}
	for _, c := range expired {
		consent := c
		event := &auditmodel.Event{
			ActorProfileID: SystemActor,
			Action:         auditmodel.ActionConsentExpired,
			EntityType:     auditmodel.EntityTypeConsent,
			EntityRef:      consent.ID,
			Meta:           map[string]interface{}{"person_id": consent.PersonID},
			CreatedTime:    now,
		}
		err := s.stores.ExecuteTransaction(ctx, []func(tx dbmodel.TxInterface) error{
			func(tx dbmodel.TxInterface) error {
				return store.ClearGrantsForConsent(ctx, tx, consent.ID)
			},
			func(tx dbmodel.TxInterface) error {
				return auditStore.Append(ctx, tx, event)
			},
		})
		if err != nil {
			s.logger.Error("Failed to sweep expired consent", log.String("consent_id", consent.ID), log.Error(err))
			continue
		}
		result.Expired++
		result.ConsentIDs = append(result.ConsentIDs, consent.ID)
		s.Revalidate(ctx, consent.PersonID)
	}
	s.logger.Info("Expired consent sweep finished", log.Int("expired", result.Expired), log.Int("candidates", len(expired)))
	return result, nil
}

// Revalidate drops cached views that show the person's consent. Failures are only logged.
func (s *consentService) Revalidate(ctx context.Context, personID int64) {
	if err := s.viewCache.RevalidatePerson(ctx, personID); err != nil {
		s.logger.Warn("Failed to revalidate consent view", log.Int64("person_id", personID), log.Error(err))
	}
	if err := s.viewCache.RevalidateQueue(ctx); err != nil {
		s.logger.Warn("Failed to revalidate consent queue", log.Error(err))
	}
}

// evaluate resolves scope against the participating roster. The operating agency is kept off
// the roster by its IS_OPERATING_AGENCY flag, so no exclude id is passed here.
func (s *consentService) evaluate(ctx context.Context, sc scope.Scope, explicit []int64) (scope.Result, *serviceerror.ServiceError) {
	roster, svcErr := s.orgService.ListParticipating(ctx, nil)
	if svcErr != nil {
		return scope.Result{}, svcErr
	}
	result, err := scope.Evaluate(sc, explicit, orgmodel.IDs(roster))
	if err != nil {
		return scope.Result{}, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	return result, nil
}

func (s *consentService) policyVersion(requested string) string {
	if requested != "" {
		return requested
	}
	return s.cfg.PolicyVersion
}

// method defaults to portal for self-service and to the configured method for staff.
func (s *consentService) method(requested model.Method, actx access.Context, personID int64) model.Method {
	if requested.IsValid() {
		return requested
	}
	if actx.IsPerson(personID) {
		return model.MethodPortal
	}
	return model.ParseMethod(s.cfg.DefaultMethod, model.MethodStaffAssisted)
}

func personNotFound(personID int64) *serviceerror.ServiceError {
	return serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
		fmt.Sprintf("person not found: %d", personID))
}

func consentNotFound(consentID string) *serviceerror.ServiceError {
	return serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
		fmt.Sprintf("consent not found: %s", consentID))
}
