package consentrequest

import (
	"net/http"
	"strconv"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/consentrequest/model"
	"github.com/wso2/case-consent-api/internal/consentrequest/validator"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

// consentRequestHandler handles HTTP requests for consent requests
type consentRequestHandler struct {
	service ConsentRequestServiceInterface
}

func newConsentRequestHandler(service ConsentRequestServiceInterface) *consentRequestHandler {
	return &consentRequestHandler{service: service}
}

func accessContext(w http.ResponseWriter, r *http.Request) (access.Context, bool) {
	actx, ok := access.FromContext(r.Context())
	if !ok {
		utils.SendError(w, serviceerror.New(serviceerror.UnauthenticatedError))
	}
	return actx, ok
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

// handleCreate handles POST /consent-requests
func (h *consentRequestHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actx, ok := accessContext(w, r)
	if !ok {
		return
	}
	var request model.CreateRequest
	if err := utils.DecodeJSONBody(r, &request); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return
	}
	input, err := validator.ToCreateInput(request)
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return
	}
	created, isNew, serviceErr := h.service.Create(r.Context(), actx, input)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	utils.JSONResponse(w, status, created)
}

// handleList handles GET /consent-requests?status=&personId=&limit=&offset=
func (h *consentRequestHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actx, ok := accessContext(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := model.ListFilter{Status: model.Status(query.Get("status"))}
	if raw := query.Get("personId"); raw != "" {
		personID, err := utils.ParseID("personId", raw)
		if err != nil {
			utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
			return
		}
		filter.PersonID = &personID
	}
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	filter.Offset, _ = strconv.Atoi(query.Get("offset"))

	response, serviceErr := h.service.List(r.Context(), actx, filter)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, response)
}

// handleGet handles GET /consent-requests/{requestId}
func (h *consentRequestHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	actx, ok := accessContext(w, r)
	if !ok {
		return
	}
	request, serviceErr := h.service.Get(r.Context(), actx, r.PathValue("requestId"))
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, request)
}

// handleApprove handles POST /consent-requests/{requestId}/approve
func (h *consentRequestHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	actx, ok := accessContext(w, r)
	if !ok {
		return
	}
	var request model.ApproveRequest
	if !decodeBody(w, r, &request) {
		return
	}
	input, err := validator.ToApproveInput(r.PathValue("requestId"), request)
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return
	}
	result, serviceErr := h.service.Approve(r.Context(), actx, input)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, result)
}

// handleDeny handles POST /consent-requests/{requestId}/deny
func (h *consentRequestHandler) handleDeny(w http.ResponseWriter, r *http.Request) {
	actx, ok := accessContext(w, r)
	if !ok {
		return
	}
	var request model.DenyRequest
	if !decodeBody(w, r, &request) {
		return
	}
	input, err := validator.ToDenyInput(r.PathValue("requestId"), request)
	if err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return
	}
	denied, serviceErr := h.service.Deny(r.Context(), actx, input)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, denied)
}
