package consentrequest

import (
	"net/http"

	"github.com/wso2/case-consent-api/internal/consent"
	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/middleware"
	"github.com/wso2/case-consent-api/internal/system/stores"
)

// Initialize sets up the consent request module and registers routes
func Initialize(
	mux *http.ServeMux,
	registry *stores.StoreRegistry,
	consentService consent.ConsentServiceInterface,
	viewCache cache.ViewCacheInterface,
	corsOpts middleware.CORSOptions,
) ConsentRequestServiceInterface {
	service := NewConsentRequestService(registry, consentService, viewCache)
	handler := newConsentRequestHandler(service)
	registerRoutes(mux, handler, corsOpts)
	return service
}

// registerRoutes registers all consent request HTTP routes with CORS support
func registerRoutes(mux *http.ServeMux, handler *consentRequestHandler, corsOpts middleware.CORSOptions) {
	base := constants.APIBasePath + "/consent-requests"

	mux.HandleFunc(middleware.WithCORS("POST "+base, handler.handleCreate, corsOpts))
	mux.HandleFunc(middleware.WithCORS("GET "+base, handler.handleList, corsOpts))
	mux.HandleFunc(middleware.WithCORS("GET "+base+"/{requestId}", handler.handleGet, corsOpts))
	mux.HandleFunc(middleware.WithCORS("POST "+base+"/{requestId}/approve", handler.handleApprove, corsOpts))
	mux.HandleFunc(middleware.WithCORS("POST "+base+"/{requestId}/deny", handler.handleDeny, corsOpts))
}
