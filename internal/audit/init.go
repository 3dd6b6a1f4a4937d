package audit

import (
	"net/http"

	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/middleware"
	"github.com/wso2/case-consent-api/internal/system/stores"
)

// Initialize sets up the audit module and registers routes. Other modules write audit events
// through the store registry, so no service is handed back.
func Initialize(mux *http.ServeMux, registry *stores.StoreRegistry, corsOpts middleware.CORSOptions) {
	registerRoutes(mux, newAuditHandler(newAuditService(registry)), corsOpts)
}

func registerRoutes(mux *http.ServeMux, handler *auditHandler, corsOpts middleware.CORSOptions) {
	// List audit events (GET /api/v1/audit-events)
	mux.HandleFunc(middleware.WithCORS(
		"GET "+constants.APIBasePath+"/audit-events",
		handler.handleList,
		corsOpts,
	))
}
