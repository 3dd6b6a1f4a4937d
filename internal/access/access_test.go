package access

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
)

func int64Ptr(v int64) *int64 { return &v }

func staffClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "staff-1"},
		OrgIDs:           []int64{5, 9},
		Capabilities:     []string{CapabilityManageConsents},
	}
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	m := NewTokenManager("secret", "portal")
	token, err := m.Issue(staffClaims(), time.Minute)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.Subject)
	assert.Equal(t, []int64{5, 9}, claims.OrgIDs)

	_, err = NewTokenManager("other", "portal").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("secret", "someone-else").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", "")
	token, err := m.Issue(staffClaims(), -time.Minute)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBuildContext(t *testing.T) {
	claims := staffClaims()

	actx, err := BuildContext(&claims, "9")
	require.NoError(t, err)
	assert.Equal(t, int64(9), *actx.OrganizationID)
	assert.True(t, actx.CanManageConsents())

	_, err = BuildContext(&claims, "6")
	assert.ErrorIs(t, err, ErrOrganizationNotHeld)

	actx, err = BuildContext(&claims, "")
	require.NoError(t, err)
	assert.Nil(t, actx.OrganizationID)

	single := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "p"}, OrgIDs: []int64{5}}
	actx, err = BuildContext(&single, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), *actx.OrganizationID)
}

func TestContext_Requirements(t *testing.T) {
	_, err := Context{ProfileID: "x"}.RequireOrganization()
	assert.True(t, err.Is(serviceerror.PermissionError))

	assert.True(t, Context{}.RequireProfile().Is(serviceerror.UnauthenticatedError))

	_, err = Context{ProfileID: "x", OrganizationID: int64Ptr(5)}.RequireConsentManager()
	assert.True(t, err.Is(serviceerror.PermissionError))

	orgID, err := Context{
		ProfileID:      "x",
		OrganizationID: int64Ptr(5),
		Capabilities:   []string{CapabilityManageConsents},
	}.RequireConsentManager()
	assert.Nil(t, err)
	assert.Equal(t, int64(5), orgID)

	assert.True(t, Context{PersonID: int64Ptr(42)}.IsPerson(42))
	assert.False(t, Context{}.IsPerson(42))
}

func TestMiddleware(t *testing.T) {
	m := NewTokenManager("secret", "portal")
	var seen Context
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/organizations/participating", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := m.Issue(staffClaims(), time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/participating", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Organization-ID", "7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set("X-Organization-ID", "5")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staff-1", seen.ProfileID)
	assert.Equal(t, int64(5), *seen.OrganizationID)
}
