package organization

import (
	"net/http"

	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/middleware"
	"github.com/wso2/case-consent-api/internal/system/stores"
)

// Initialize sets up the organization roster module and registers routes
func Initialize(mux *http.ServeMux, registry *stores.StoreRegistry, corsOpts middleware.CORSOptions) OrganizationServiceInterface {
	service := NewOrganizationService(registry)
	handler := newOrganizationHandler(service)
	registerRoutes(mux, handler, corsOpts)
	return service
}

func registerRoutes(mux *http.ServeMux, handler *organizationHandler, corsOpts middleware.CORSOptions) {
	// Participating roster (GET /api/v1/organizations/participating)
	mux.HandleFunc(middleware.WithCORS(
		"GET "+constants.APIBasePath+"/organizations/participating",
		handler.handleListParticipating,
		corsOpts,
	))
}
