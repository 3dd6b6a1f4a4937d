package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wso2/case-consent-api/internal/access"
	auditmocks "github.com/wso2/case-consent-api/internal/audit/mocks"
	auditmodel "github.com/wso2/case-consent-api/internal/audit/model"
	"github.com/wso2/case-consent-api/internal/consent/mocks"
	"github.com/wso2/case-consent-api/internal/consent/model"
	orgmocks "github.com/wso2/case-consent-api/internal/organization/mocks"
	"github.com/wso2/case-consent-api/internal/scope"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/config"
	"github.com/wso2/case-consent-api/internal/system/database"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/stores"
)

const (
	fixedNow = int64(1_750_000_000_000)
	day      = int64(24 * time.Hour / time.Millisecond)
	personID = int64(42)
)

type fixture struct {
	store  *mocks.MockConsentStore
	audits *auditmocks.MockAuditStore
	orgs   *orgmocks.MockOrganizationService
	sql    sqlmock.Sqlmock
	svc    *consentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	f := &fixture{
		store:  &mocks.MockConsentStore{},
		audits: &auditmocks.MockAuditStore{},
		orgs:   &orgmocks.MockOrganizationService{},
		sql:    sqlMock,
	}
	registry := stores.NewStoreRegistry(provider.NewDBClient(database.Wrap(sqlDB, "mysql")), f.store, nil, nil, f.audits)
	f.svc = NewConsentService(registry, f.orgs, nil, config.ConsentConfig{
		DefaultValidity:              24 * time.Hour,
		PolicyVersion:                "2025-01",
		DefaultMethod:                "staff_assisted",
		RequireAttestationOnOverride: true,
	}).(*consentService)
	f.svc.now = func() int64 { return fixedNow }
	return f
}

func (f *fixture) roster(ids ...int64) {
	f.orgs.On("ListParticipating", mock.Anything, (*int64)(nil)).Return(orgmocks.Roster(ids...), nil)
}

func (f *fixture) expectCommit() {
	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
}

func (f *fixture) expectSaveWrites(allowed []int64) {
	f.store.On("SupersedeCurrent", mock.Anything, mock.Anything, personID, mock.Anything, fixedNow).Return(int64(0), nil).Once()
	f.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.store.On("ReplaceSelections", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.store.On("ReplaceGrants", mock.Anything, mock.Anything, personID, mock.Anything, allowed, fixedNow).Return(nil).Once()
	f.audits.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func int64Ptr(v int64) *int64 { return &v }

func self() access.Context {
	return access.Context{ProfileID: "client-42", PersonID: int64Ptr(personID)}
}

func staff(capabilities ...string) access.Context {
	return access.Context{
		ProfileID:       "staff-1",
		OrganizationID:  int64Ptr(1),
		OrganizationIDs: []int64{1},
		Capabilities:    capabilities,
	}
}

func manager() access.Context {
	return staff(access.CapabilityManageConsents)
}

func TestSave_SelectedOrgsDropsNonParticipating(t *testing.T) {
	f := newFixture(t)
	f.roster(3, 7, 8)
	f.store.On("PersonExists", mock.Anything, personID).Return(true, nil)
	f.store.On("GetCurrent", mock.Anything, personID).Return(nil, nil)
	f.expectSaveWrites([]int64{3, 7})
	f.expectCommit()

	consent, svcErr := f.svc.Save(context.Background(), self(), model.SaveInput{
		PersonID:      personID,
		Scope:         scope.SelectedOrgs,
		AllowedOrgIDs: []int64{3, 7, 99},
	})

	require.Nil(t, svcErr)
	assert.Equal(t, []int64{3, 7}, consent.AllowedOrgIDs)
	assert.Equal(t, []int64{8}, consent.BlockedOrgIDs)
	assert.Equal(t, model.MethodPortal, consent.CapturedMethod)
	assert.Equal(t, "2025-01", consent.PolicyVersion)
	assert.Equal(t, fixedNow+day, *consent.ExpiresTime)
	assert.Equal(t, model.StatusActive, consent.Status)
	f.store.AssertCalled(t, "ReplaceSelections", mock.Anything, mock.Anything, consent.ID,
		scope.Result{Allowed: []int64{3, 7}, Blocked: []int64{8}})
	assert.Equal(t, []string{auditmodel.ActionConsentCreated}, f.audits.Actions())
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestSave_ReplacesPreviousConsent(t *testing.T) {
	f := newFixture(t)
	f.roster(3, 7)
	f.store.On("PersonExists", mock.Anything, personID).Return(true, nil)
	f.store.On("GetCurrent", mock.Anything, personID).Return(&model.Consent{ID: "old", PersonID: personID}, nil)
	f.expectSaveWrites([]int64{3, 7})
	f.expectCommit()

	consent, svcErr := f.svc.Save(context.Background(), manager(), model.SaveInput{PersonID: personID, Scope: scope.AllOrgs})

	require.Nil(t, svcErr)
	assert.Equal(t, model.MethodStaffAssisted, consent.CapturedMethod)
	assert.Equal(t, int64(1), *consent.CapturedOrgID)
	assert.Equal(t, []string{auditmodel.ActionConsentUpdated}, f.audits.Actions())
	event := f.audits.Calls[0].Arguments.Get(2).(*auditmodel.Event)
	assert.Equal(t, "old", event.Meta["previous_consent_id"])
}

func TestSave_SelectedOrgsWithoutParticipatingOrg(t *testing.T) {
	f := newFixture(t)
	f.roster(3, 7)
	f.store.On("PersonExists", mock.Anything, personID).Return(true, nil)

	_, svcErr := f.svc.Save(context.Background(), self(), model.SaveInput{
		PersonID:      personID,
		Scope:         scope.SelectedOrgs,
		AllowedOrgIDs: []int64{99},
	})

	require.NotNil(t, svcErr)
	assert.True(t, svcErr.Is(serviceerror.ValidationError))
	assert.Equal(t, "select at least one organization", svcErr.ErrorDescription)
	f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestSave_PermissionDenied(t *testing.T) {
	f := newFixture(t)

	_, svcErr := f.svc.Save(context.Background(), staff(), model.SaveInput{PersonID: personID, Scope: scope.AllOrgs})
	require.NotNil(t, svcErr)
	assert.True(t, svcErr.Is(serviceerror.PermissionError))
	assert.Equal(t, serviceerror.PermissionError.ErrorDescription, svcErr.ErrorDescription)

	other := self()
	other.PersonID = int64Ptr(7)
	_, svcErr = f.svc.Save(context.Background(), other, model.SaveInput{PersonID: personID, Scope: scope.AllOrgs})
	assert.True(t, svcErr.Is(serviceerror.PermissionError))

	_, svcErr = f.svc.Save(context.Background(), access.Context{}, model.SaveInput{PersonID: personID, Scope: scope.AllOrgs})
	assert.True(t, svcErr.Is(serviceerror.UnauthenticatedError))
}

func TestSave_UnknownPerson(t *testing.T) {
	f := newFixture(t)
	f.store.On("PersonExists", mock.Anything, personID).Return(false, nil)

	_, svcErr := f.svc.Save(context.Background(), manager(), model.SaveInput{PersonID: personID, Scope: scope.None})
	assert.True(t, svcErr.Is(serviceerror.ResourceNotFoundError))
}

func TestSave_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.roster(3)
	f.store.On("PersonExists", mock.Anything, personID).Return(true, nil)
	f.store.On("GetCurrent", mock.Anything, personID).Return(nil, nil)
	f.store.On("SupersedeCurrent", mock.Anything, mock.Anything, personID, mock.Anything, fixedNow).Return(int64(0), nil)
	f.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("duplicate key"))
	f.sql.ExpectBegin()
	f.sql.ExpectRollback()

	_, svcErr := f.svc.Save(context.Background(), self(), model.SaveInput{PersonID: personID, Scope: scope.AllOrgs})

	require.NotNil(t, svcErr)
	assert.True(t, svcErr.Is(serviceerror.DatabaseError))
	assert.NotContains(t, svcErr.ErrorDescription, "duplicate key")
	f.audits.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestOverride_RequiresAttestationAndCapability(t *testing.T) {
	f := newFixture(t)

	_, svcErr := f.svc.Override(context.Background(), self(), model.SaveInput{PersonID: personID, Scope: scope.AllOrgs})
	assert.True(t, svcErr.Is(serviceerror.PermissionError))

	_, svcErr = f.svc.Override(context.Background(), manager(), model.SaveInput{PersonID: personID, Scope: scope.AllOrgs})
	require.NotNil(t, svcErr)
	assert.True(t, svcErr.Is(serviceerror.ValidationError))
}

func TestOverride_RecordsOverrideMeta(t *testing.T) {
	f := newFixture(t)
	f.roster(3, 7)
	f.store.On("PersonExists", mock.Anything, personID).Return(true, nil)
	f.store.On("GetCurrent", mock.Anything, personID).Return(nil, nil)
	f.expectSaveWrites([]int64{})
	f.expectCommit()

	consent, svcErr := f.svc.Override(context.Background(), manager(), model.SaveInput{
		PersonID:        personID,
		Scope:           scope.None,
		AttestedByStaff: true,
		Method:          model.MethodVerbal,
	})

	require.Nil(t, svcErr)
	assert.Equal(t, model.MethodVerbal, consent.CapturedMethod)
	assert.Equal(t, []int64{3, 7}, consent.BlockedOrgIDs)
	event := f.audits.Calls[0].Arguments.Get(2).(*auditmodel.Event)
	assert.Equal(t, true, event.Meta["override"])
}

func TestRevoke_NoActiveConsent(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetCurrent", mock.Anything, personID).Return(nil, nil)

	_, svcErr := f.svc.Revoke(context.Background(), self(), model.RevokeInput{PersonID: personID})

	require.NotNil(t, svcErr)
	assert.True(t, svcErr.Is(serviceerror.ResourceNotFoundError))
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestRevoke_ExpiredConsentIsNotActive(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetCurrent", mock.Anything, personID).
		Return(&model.Consent{ID: "c-1", PersonID: personID, ExpiresTime: int64Ptr(fixedNow - 1)}, nil)

	_, svcErr := f.svc.Revoke(context.Background(), self(), model.RevokeInput{PersonID: personID})
	assert.True(t, svcErr.Is(serviceerror.ResourceNotFoundError))
}

func TestRevoke_ClearsAllGrants(t *testing.T) {
	tests := []struct {
		name   string
		actx   access.Context
		action string
	}{
		{name: "self service", actx: self(), action: auditmodel.ActionConsentRevoked},
		{name: "staff", actx: manager(), action: auditmodel.ActionConsentRevokedAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.On("GetCurrent", mock.Anything, personID).Return(&model.Consent{
				ID:            "c-1",
				PersonID:      personID,
				Scope:         scope.AllOrgs,
				ExpiresTime:   int64Ptr(fixedNow + day),
				AllowedOrgIDs: []int64{3, 7},
			}, nil)
			f.store.On("Revoke", mock.Anything, mock.Anything, "c-1", tt.actx.ProfileID, fixedNow).Return(int64(1), nil)
			f.store.On("ClearGrants", mock.Anything, mock.Anything, personID).Return(nil)
			f.audits.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			f.expectCommit()

			consent, svcErr := f.svc.Revoke(context.Background(), tt.actx, model.RevokeInput{PersonID: personID, Reason: "moved away"})

			require.Nil(t, svcErr)
			assert.Equal(t, model.StatusRevoked, consent.Status)
			assert.Equal(t, fixedNow, *consent.RevokedTime)
			f.store.AssertCalled(t, "ClearGrants", mock.Anything, mock.Anything, personID)
			f.store.AssertNotCalled(t, "ReplaceGrants", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, []string{tt.action}, f.audits.Actions())
			assert.NoError(t, f.sql.ExpectationsWereMet())
		})
	}
}

func TestRevoke_ConcurrentRevokeReportsNotFound(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetCurrent", mock.Anything, personID).Return(&model.Consent{ID: "c-1", PersonID: personID}, nil)
	f.store.On("Revoke", mock.Anything, mock.Anything, "c-1", "client-42", fixedNow).Return(int64(0), nil)
	f.sql.ExpectBegin()
	f.sql.ExpectRollback()

	_, svcErr := f.svc.Revoke(context.Background(), self(), model.RevokeInput{PersonID: personID})
	assert.True(t, svcErr.Is(serviceerror.ResourceNotFoundError))
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func renewable(expires int64) *model.Consent {
	return &model.Consent{
		ID:          "0f8fad5b-d9cb-469f-a165-70867728950e",
		PersonID:    personID,
		Scope:       scope.SelectedOrgs,
		ExpiresTime: &expires,
	}
}

func (f *fixture) expectRenewWrites(allowed []int64) {
	f.store.On("Renew", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	f.store.On("ReplaceSelections", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("ReplaceGrants", mock.Anything, mock.Anything, personID, mock.Anything, allowed, fixedNow).Return(nil)
	f.audits.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.expectCommit()
}

func TestRenew_KeepsScopeAndExtendsExpiry(t *testing.T) {
	f := newFixture(t)
	existing := renewable(fixedNow - day)
	f.roster(3, 7, 8)
	f.store.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.store.On("GetSelections", mock.Anything, existing.ID).Return([]model.Selection{
		{OrgID: 3, Allowed: true}, {OrgID: 7, Allowed: false}, {OrgID: 8, Allowed: true},
	}, nil)
	f.expectRenewWrites([]int64{3, 8})

	renewed, svcErr := f.svc.Renew(context.Background(), self(), model.RenewInput{
		ConsentID:        existing.ID,
		AttestedByClient: true,
	})

	require.Nil(t, svcErr)
	assert.Equal(t, scope.SelectedOrgs, renewed.Scope)
	assert.Equal(t, []int64{3, 8}, renewed.AllowedOrgIDs)
	assert.Equal(t, fixedNow+day, *renewed.ExpiresTime)
	assert.Greater(t, *renewed.ExpiresTime, fixedNow)
	assert.True(t, renewed.AttestedByClient)
	assert.Equal(t, model.StatusActive, renewed.Status)
	assert.Equal(t, []string{auditmodel.ActionConsentRenewed}, f.audits.Actions())
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestRenew_NeverShortensExpiry(t *testing.T) {
	f := newFixture(t)
	existing := renewable(fixedNow + 10*day)
	f.roster(3)
	f.store.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.store.On("GetSelections", mock.Anything, existing.ID).Return([]model.Selection{{OrgID: 3, Allowed: true}}, nil)
	f.expectRenewWrites([]int64{3})

	renewed, svcErr := f.svc.Renew(context.Background(), manager(), model.RenewInput{ConsentID: existing.ID, PersonID: personID})

	require.Nil(t, svcErr)
	assert.Equal(t, fixedNow+10*day, *renewed.ExpiresTime)
}

func TestRenew_ExplicitScopeChange(t *testing.T) {
	f := newFixture(t)
	existing := renewable(fixedNow + day)
	f.roster(3, 7)
	f.store.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.store.On("GetSelections", mock.Anything, existing.ID).Return([]model.Selection{{OrgID: 3, Allowed: true}}, nil)
	f.expectRenewWrites([]int64{3, 7})

	all := scope.AllOrgs
	renewed, svcErr := f.svc.Renew(context.Background(), self(), model.RenewInput{ConsentID: existing.ID, Scope: &all})

	require.Nil(t, svcErr)
	assert.Equal(t, scope.AllOrgs, renewed.Scope)
	assert.Equal(t, []int64{3, 7}, renewed.AllowedOrgIDs)
}

func TestRenew_Rejects(t *testing.T) {
	f := newFixture(t)
	superseded := renewable(fixedNow + day)
	superseded.SupersededTime = int64Ptr(fixedNow - day)
	f.store.On("GetByID", mock.Anything, "missing").Return(nil, nil)
	f.store.On("GetByID", mock.Anything, superseded.ID).Return(superseded, nil)

	_, svcErr := f.svc.Renew(context.Background(), self(), model.RenewInput{ConsentID: "missing"})
	assert.True(t, svcErr.Is(serviceerror.ResourceNotFoundError))

	_, svcErr = f.svc.Renew(context.Background(), manager(), model.RenewInput{ConsentID: superseded.ID, PersonID: 7})
	assert.True(t, svcErr.Is(serviceerror.ResourceNotFoundError))

	_, svcErr = f.svc.Renew(context.Background(), staff(), model.RenewInput{ConsentID: superseded.ID})
	assert.True(t, svcErr.Is(serviceerror.PermissionError))

	_, svcErr = f.svc.Renew(context.Background(), self(), model.RenewInput{ConsentID: superseded.ID})
	require.NotNil(t, svcErr)
	assert.Equal(t, "only the current consent can be renewed", svcErr.ErrorDescription)
}

func TestGetCurrent_LoadsAndCachesView(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.viewCache = cache.NewRedisViewCache(client, "test", time.Minute)

	f.roster(3, 7)
	f.store.On("PersonExists", mock.Anything, personID).Return(true, nil).Once()
	f.store.On("GetCurrent", mock.Anything, personID).
		Return(&model.Consent{ID: "c-1", PersonID: personID, Scope: scope.SelectedOrgs, ExpiresTime: int64Ptr(fixedNow + day)}, nil).Once()
	f.store.On("GetSelections", mock.Anything, "c-1").
		Return([]model.Selection{{OrgID: 3, Allowed: true}, {OrgID: 7, Allowed: false}}, nil).Once()

	view, svcErr := f.svc.GetCurrent(context.Background(), self(), personID)
	require.Nil(t, svcErr)
	assert.Equal(t, []int64{3}, view.Consent.AllowedOrgIDs)
	assert.Equal(t, model.StatusActive, view.Consent.Status)
	assert.Len(t, view.Organizations, 2)

	f.svc.now = func() int64 { return fixedNow + 2*day }
	cached, svcErr := f.svc.GetCurrent(context.Background(), staff(), personID)
	require.Nil(t, svcErr)
	assert.Equal(t, model.StatusExpired, cached.Consent.Status)
	f.store.AssertExpectations(t)

	f.svc.Revalidate(context.Background(), personID)
	assert.False(t, mr.Exists("test:person:42:view"))
}

func TestGetCurrent_Failures(t *testing.T) {
	f := newFixture(t)

	_, svcErr := f.svc.GetCurrent(context.Background(), access.Context{ProfileID: "client-7", PersonID: int64Ptr(7)}, personID)
	assert.True(t, svcErr.Is(serviceerror.PermissionError))

	f.roster(3)
	f.store.On("PersonExists", mock.Anything, personID).Return(false, nil)
	f.store.On("GetCurrent", mock.Anything, personID).Return(nil, nil)
	_, svcErr = f.svc.GetCurrent(context.Background(), self(), personID)
	assert.True(t, svcErr.Is(serviceerror.ResourceNotFoundError))
}

func TestListHistory_DerivesStatus(t *testing.T) {
	f := newFixture(t)
	f.store.On("ListByPerson", mock.Anything, personID).Return([]model.Consent{
		{ID: "c-3", ExpiresTime: int64Ptr(fixedNow + day)},
		{ID: "c-2", SupersededTime: int64Ptr(fixedNow - day)},
		{ID: "c-1", RevokedTime: int64Ptr(fixedNow - 2*day)},
	}, nil)

	history, svcErr := f.svc.ListHistory(context.Background(), self(), personID)
	require.Nil(t, svcErr)
	statuses := []model.Status{history.Data[0].Status, history.Data[1].Status, history.Data[2].Status}
	assert.Equal(t, []model.Status{model.StatusActive, model.StatusSuperseded, model.StatusRevoked}, statuses)
}

func TestCheckVisibility(t *testing.T) {
	f := newFixture(t)
	consentID := "c-1"
	f.store.On("GetActiveGrant", mock.Anything, personID, int64(3), fixedNow).Return(&consentID, nil)
	f.store.On("GetActiveGrant", mock.Anything, personID, int64(8), fixedNow).Return(nil, nil)

	visible, svcErr := f.svc.CheckVisibility(context.Background(), staff(), personID, 3)
	require.Nil(t, svcErr)
	assert.True(t, visible.Visible)
	assert.Equal(t, "c-1", *visible.ConsentID)

	hidden, svcErr := f.svc.CheckVisibility(context.Background(), staff(), personID, 8)
	require.Nil(t, svcErr)
	assert.False(t, hidden.Visible)

	_, svcErr = f.svc.CheckVisibility(context.Background(), self(), personID, 3)
	assert.True(t, svcErr.Is(serviceerror.PermissionError))
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	f.store.On("ListExpiredWithGrants", mock.Anything, fixedNow).Return([]model.Consent{
		{ID: "c-1", PersonID: 42}, {ID: "c-2", PersonID: 43},
	}, nil)
	f.store.On("ClearGrantsForConsent", mock.Anything, mock.Anything, "c-1").Return(nil)
	f.store.On("ClearGrantsForConsent", mock.Anything, mock.Anything, "c-2").Return(errors.New("lock timeout"))
	f.audits.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.sql.ExpectBegin()
	f.sql.ExpectCommit()
	f.sql.ExpectBegin()
	f.sql.ExpectRollback()

	result, svcErr := f.svc.SweepExpired(context.Background(), fixedNow)

	require.Nil(t, svcErr)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, []string{"c-1"}, result.ConsentIDs)
	assert.Equal(t, []string{auditmodel.ActionConsentExpired}, f.audits.Actions())
	assert.NoError(t, f.sql.ExpectationsWereMet())
}
