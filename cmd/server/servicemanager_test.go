package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/config"
	"github.com/wso2/case-consent-api/internal/system/database"
	"github.com/wso2/case-consent-api/internal/system/middleware"
)

func newTestServer(t *testing.T) (http.Handler, sqlmock.Sqlmock, *config.Config) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	cfg := &config.Config{
		Consent:  config.ConsentConfig{DefaultValidity: 24 * time.Hour, PolicyVersion: "2025-01", DefaultMethod: "staff_assisted"},
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: "server-secret", Issuer: "portal"}},
	}
	mux := http.NewServeMux()
	registerServices(mux, cfg, database.Wrap(sqlDB, "mysql"), cache.NewNoopViewCache())
	t.Cleanup(unregisterServices)
	return middleware.WrapWithCorrelationID(mux), mock, cfg
}

func TestRegisterServices_Health(t *testing.T) {
	handler, mock, _ := newTestServer(t)
	mock.ExpectPing()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterServices_APIRequiresToken(t *testing.T) {
	handler, _, _ := newTestServer(t)

	for _, path := range []string{"/api/v1/organizations/participating", "/portal/persons/42/consent"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRegisterServices_ListsRosterForStaff(t *testing.T) {
	handler, mock, cfg := newTestServer(t)
	mock.ExpectQuery("SELECT ORG_ID, NAME, IS_ACTIVE, IS_OPERATING_AGENCY FROM ORGANIZATION").
		WithArgs(true, false).
		WillReturnRows(sqlmock.NewRows([]string{"ORG_ID", "NAME", "IS_ACTIVE", "IS_OPERATING_AGENCY"}).
			AddRow(3, "Food Bank", true, false).
			AddRow(7, "Shelter", true, false))

	token, err := access.NewTokenManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).Issue(access.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "staff-1"},
		OrgIDs:           []int64{1},
	}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/participating", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Food Bank", body.Data[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterServices_AuditRouteRequiresConsentManager(t *testing.T) {
	handler, _, cfg := newTestServer(t)
	token, err := access.NewTokenManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).Issue(access.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "staff-1"},
		OrgIDs:           []int64{1},
	}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events?entityType=consent&entityRef=c-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
