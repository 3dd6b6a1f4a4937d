package consent

import (
	"net/http"

	"github.com/wso2/case-consent-api/internal/organization"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/config"
	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/middleware"
	"github.com/wso2/case-consent-api/internal/system/stores"
)

// Initialize sets up the consent module and registers routes
func Initialize(
	mux *http.ServeMux,
	registry *stores.StoreRegistry,
	orgService organization.OrganizationServiceInterface,
	viewCache cache.ViewCacheInterface,
	cfg config.ConsentConfig,
	corsOpts middleware.CORSOptions,
) ConsentServiceInterface {
	service := NewConsentService(registry, orgService, viewCache, cfg)
	handler := newConsentHandler(service)
	registerRoutes(mux, handler, corsOpts)
	return service
}

// registerRoutes registers all consent HTTP routes with CORS support
func registerRoutes(mux *http.ServeMux, handler *consentHandler, corsOpts middleware.CORSOptions) {
	personBase := constants.APIBasePath + "/persons/{personId}"

	// Current consent with roster (GET /api/v1/persons/{personId}/consent)
	mux.HandleFunc(middleware.WithCORS("GET "+personBase+"/consent", handler.handleGetCurrent, corsOpts))

	// Consent history (GET /api/v1/persons/{personId}/consents)
	mux.HandleFunc(middleware.WithCORS("GET "+personBase+"/consents", handler.handleListHistory, corsOpts))

	// Partner visibility check (GET /api/v1/persons/{personId}/visibility?orgId=)
	mux.HandleFunc(middleware.WithCORS("GET "+personBase+"/visibility", handler.handleVisibility, corsOpts))

	// Save (POST /api/v1/persons/{personId}/consent)
	mux.HandleFunc(middleware.WithCORS("POST "+personBase+"/consent", handler.handleSave, corsOpts))

	// Staff override (POST /api/v1/persons/{personId}/consent/override)
	mux.HandleFunc(middleware.WithCORS("POST "+personBase+"/consent/override", handler.handleOverride, corsOpts))

	// Revoke (POST /api/v1/persons/{personId}/consent/revoke)
	mux.HandleFunc(middleware.WithCORS("POST "+personBase+"/consent/revoke", handler.handleRevoke, corsOpts))

	// Renew (POST /api/v1/consents/{consentId}/renew)
	mux.HandleFunc(middleware.WithCORS(
		"POST "+constants.APIBasePath+"/consents/{consentId}/renew",
		handler.handleRenew,
		corsOpts,
	))
}
