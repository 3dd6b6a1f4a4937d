package main

import (
	"net/http"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/audit"
	"github.com/wso2/case-consent-api/internal/consent"
	"github.com/wso2/case-consent-api/internal/consentrequest"
	"github.com/wso2/case-consent-api/internal/organization"
	"github.com/wso2/case-consent-api/internal/portal"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/config"
	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/database"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/middleware"
	"github.com/wso2/case-consent-api/internal/system/stores"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

// Package-level service references for cleanup during shutdown
var (
	consentService        consent.ConsentServiceInterface
	consentRequestService consentrequest.ConsentRequestServiceInterface
)

// registerServices wires the stores, modules and portal onto mux.
// The JSON API sits behind bearer authentication; the portal authenticates inside its own router.
func registerServices(mux *http.ServeMux, cfg *config.Config, db *database.DB, viewCache cache.ViewCacheInterface) {
	logger := log.GetLogger()

	dbClient := provider.NewDBClient(db)
	registry := stores.NewStoreRegistry(
		dbClient,
		consent.NewConsentStore(dbClient),
		consentrequest.NewConsentRequestStore(dbClient),
		organization.NewOrganizationStore(dbClient),
		audit.NewAuditStore(dbClient),
	)
	corsOpts := middleware.DefaultCORSOptions(cfg.CORS.AllowedOrigins, cfg.CORS.AllowCredentials)
	tokens := access.NewTokenManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer)

	api := http.NewServeMux()

	orgService := organization.Initialize(api, registry, corsOpts)
	logger.Info("Organization module initialized")

	consentService = consent.Initialize(api, registry, orgService, viewCache, cfg.Consent, corsOpts)
	logger.Info("Consent module initialized")

	consentRequestService = consentrequest.Initialize(api, registry, consentService, viewCache, corsOpts)
	logger.Info("Consent request module initialized")

	audit.Initialize(api, registry, corsOpts)
	logger.Info("Audit module initialized")

	api.HandleFunc("OPTIONS "+constants.APIBasePath+"/", middleware.PreflightHandler(corsOpts))
	mux.Handle(constants.APIBasePath+"/", access.Middleware(tokens)(api))

	portalRouter := portal.NewRouter(portal.NewHandler(consentService, consentRequestService), tokens, corsOpts)
	mux.Handle("/portal/", http.StripPrefix("/portal", portalRouter))
	logger.Info("Portal routes initialized")

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			utils.JSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		utils.JSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}

// unregisterServices releases module state during shutdown.
func unregisterServices() {
	consentService = nil
	consentRequestService = nil
}
