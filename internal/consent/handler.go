package consent

import (
	"net/http"
	"strconv"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/consent/model"
	"github.com/wso2/case-consent-api/internal/consent/validator"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

// consentHandler handles HTTP requests for consents
type consentHandler struct {
	service ConsentServiceInterface
}

func newConsentHandler(service ConsentServiceInterface) *consentHandler {
	return &consentHandler{service: service}
}

// requestContext extracts the access context and the {personId} path value.
func requestContext(w http.ResponseWriter, r *http.Request) (access.Context, int64, bool) {
	actx, ok := access.FromContext(r.Context())
	if !ok {
		utils.SendError(w, serviceerror.New(serviceerror.UnauthenticatedError))
		return access.Context{}, 0, false
	}
	personID, err := utils.ParseID("person ID", r.PathValue("personId"))
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return access.Context{}, 0, false
	}
	return actx, personID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := utils.DecodeJSONBody(r, v); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return false
	}
	return true
}

// handleGetCurrent handles GET /persons/{personId}/consent
func (h *consentHandler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	actx, personID, ok := requestContext(w, r)
	if !ok {
		return
	}
	view, serviceErr := h.service.GetCurrent(r.Context(), actx, personID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, view)
}

// handleListHistory handles GET /persons/{personId}/consents
func (h *consentHandler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	actx, personID, ok := requestContext(w, r)
	if !ok {
		return
	}
	history, serviceErr := h.service.ListHistory(r.Context(), actx, personID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, history)
}

// handleVisibility handles GET /persons/{personId}/visibility?orgId=
func (h *consentHandler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	actx, personID, ok := requestContext(w, r)
	if !ok {
		return
	}
	orgID, err := strconv.ParseInt(r.URL.Query().Get("orgId"), 10, 64)
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, "orgId query parameter is required"))
		return
	}
	response, serviceErr := h.service.CheckVisibility(r.Context(), actx, personID, orgID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, response)
}

// handleSave handles POST /persons/{personId}/consent
func (h *consentHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, false)
}

// handleOverride handles POST /persons/{personId}/consent/override
func (h *consentHandler) handleOverride(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, true)
}

func (h *consentHandler) save(w http.ResponseWriter, r *http.Request, override bool) {
	actx, personID, ok := requestContext(w, r)
	if !ok {
		return
	}
	var request model.SaveRequest
	if !decodeBody(w, r, &request) {
		return
	}
	// An absent method is resolved by the service from who is saving.
	input, err := validator.ToSaveInput(personID, request, "")
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return
	}

	var (
		consent    *model.Consent
		serviceErr *serviceerror.ServiceError
	)
	if override {
		consent, serviceErr = h.service.Override(r.Context(), actx, input)
	} else {
		consent, serviceErr = h.service.Save(r.Context(), actx, input)
	}
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusCreated, consent)
}

// handleRevoke handles POST /persons/{personId}/consent/revoke
func (h *consentHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	actx, personID, ok := requestContext(w, r)
	if !ok {
		return
	}
	var request model.RevokeRequest
	if !decodeBody(w, r, &request) {
		return
	}
	input, err := validator.ToRevokeInput(personID, request)
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return
	}
	consent, serviceErr := h.service.Revoke(r.Context(), actx, input)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, consent)
}

// handleRenew handles POST /consents/{consentId}/renew
func (h *consentHandler) handleRenew(w http.ResponseWriter, r *http.Request) {
	actx, ok := access.FromContext(r.Context())
	if !ok {
		utils.SendError(w, serviceerror.New(serviceerror.UnauthenticatedError))
		return
	}
	var request model.RenewRequest
	if !decodeBody(w, r, &request) {
		return
	}
	input, err := validator.ToRenewInput(r.PathValue("consentId"), request)
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return
	}
	consent, serviceErr := h.service.Renew(r.Context(), actx, input)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, consent)
}
