package organization

import (
	"net/http"
	"strconv"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/organization/model"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

type organizationHandler struct {
	service OrganizationServiceInterface
}

func newOrganizationHandler(service OrganizationServiceInterface) *organizationHandler {
	return &organizationHandler{service: service}
}

// handleListParticipating handles GET /organizations/participating?exclude=<id>
func (h *organizationHandler) handleListParticipating(w http.ResponseWriter, r *http.Request) {
	actx, ok := access.FromContext(r.Context())
	if !ok {
		utils.SendError(w, serviceerror.New(serviceerror.UnauthenticatedError))
		return
	}
	if err := actx.RequireProfile(); err != nil {
		utils.SendError(w, err)
		return
	}

	var exclude *int64
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, "exclude must be an organization id"))
			return
		}
		exclude = &id
	}

	orgs, serviceErr := h.service.ListParticipating(r.Context(), exclude)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, model.ListResponse{Data: orgs})
}
