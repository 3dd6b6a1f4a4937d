package portal

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/consent"
	"github.com/wso2/case-consent-api/internal/consentrequest"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/middleware"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

// ActionResult is the JSON body every portal form action returns.
type ActionResult struct {
	OK          bool        `json:"ok"`
	Message     string      `json:"message,omitempty"`
	FieldErrors FieldErrors `json:"fieldErrors,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

// Handler serves the portal form actions.
type Handler struct {
	consentService consent.ConsentServiceInterface
	requestService consentrequest.ConsentRequestServiceInterface
}

// NewHandler creates the portal handler.
func NewHandler(
	consentService consent.ConsentServiceInterface,
	requestService consentrequest.ConsentRequestServiceInterface,
) *Handler {
	return &Handler{consentService: consentService, requestService: requestService}
}

func succeed(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, ActionResult{OK: true, Message: message, Data: data})
}

func fail(c *gin.Context, svcErr *serviceerror.ServiceError) {
	if svcErr.Type == serviceerror.ServerErrorType {
		middleware.LoggerFromContext(c.Request.Context()).Warn("Portal action failed",
			log.String("path", c.FullPath()),
			log.String("code", svcErr.Code))
	}
	c.JSON(utils.StatusCode(svcErr), ActionResult{OK: false, Message: svcErr.ErrorDescription})
}

func failFields(c *gin.Context, errs FieldErrors) {
	c.JSON(http.StatusBadRequest, ActionResult{
		OK:          false,
		Message:     "Please correct the highlighted fields.",
		FieldErrors: errs,
	})
}

// bind decodes the posted form into dst, reporting binding failures per field.
func bind(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBind(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fail(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "The form could not be read."))
		return false
	}
	errs := FieldErrors{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs.Add(fe.Field(), "this field is required")
		case "max":
			errs.Add(fe.Field(), "this field is too long")
		default:
			errs.Add(fe.Field(), "this field is invalid")
		}
	}
	failFields(c, errs)
	return false
}

func accessContext(c *gin.Context) (access.Context, bool) {
	actx, ok := access.FromContext(c.Request.Context())
	if !ok {
		fail(c, serviceerror.New(serviceerror.UnauthenticatedError))
	}
	return actx, ok
}

// ConsentView handles GET /portal/persons/:personId/consent
func (h *Handler) ConsentView(c *gin.Context) {
	actx, ok := accessContext(c)
	if !ok {
		return
	}
	personID, err := utils.ParseID("person", c.Param("personId"))
	if err != nil {
		fail(c, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error()))
		return
	}
	view, svcErr := h.consentService.GetCurrent(c.Request.Context(), actx, personID)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	succeed(c, http.StatusOK, "", view)
}

// SaveConsent handles POST /portal/consent/save
func (h *Handler) SaveConsent(c *gin.Context) {
	h.save(c, false)
}

// OverrideConsent handles POST /portal/consent/override
func (h *Handler) OverrideConsent(c *gin.Context) {
	h.save(c, true)
}

func (h *Handler) save(c *gin.Context, override bool) {
	actx, ok := accessContext(c)
	if !ok {
		return
	}
	var form consentForm
	if !bind(c, &form) {
		return
	}
	input, errs := parseSave(form)
	if len(errs) > 0 {
		failFields(c, errs)
		return
	}

	save := h.consentService.Save
	if override {
		save = h.consentService.Override
	}
	saved, svcErr := save(c.Request.Context(), actx, input)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	succeed(c, http.StatusOK, "Consent saved.", saved)
}

// RenewConsent handles POST /portal/consent/renew
func (h *Handler) RenewConsent(c *gin.Context) {
	actx, ok := accessContext(c)
	if !ok {
		return
	}
	var form consentForm
	if !bind(c, &form) {
		return
	}
	input, errs := parseRenew(form)
	if len(errs) > 0 {
		failFields(c, errs)
		return
	}
	renewed, svcErr := h.consentService.Renew(c.Request.Context(), actx, input)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	succeed(c, http.StatusOK, "Consent renewed.", renewed)
}

// RevokeConsent handles POST /portal/consent/revoke
func (h *Handler) RevokeConsent(c *gin.Context) {
	actx, ok := accessContext(c)
	if !ok {
		return
	}
	var form revokeForm
	if !bind(c, &form) {
		return
	}
	input, errs := parseRevoke(form)
	if len(errs) > 0 {
		failFields(c, errs)
		return
	}
	revoked, svcErr := h.consentService.Revoke(c.Request.Context(), actx, input)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	succeed(c, http.StatusOK, "Consent revoked.", revoked)
}

// RequestConsent handles POST /portal/consent-requests
func (h *Handler) RequestConsent(c *gin.Context) {
	actx, ok := accessContext(c)
	if !ok {
		return
	}
	var form requestForm
	if !bind(c, &form) {
		return
	}
	input, errs := parseRequest(form)
	if len(errs) > 0 {
		failFields(c, errs)
		return
	}
	request, created, svcErr := h.requestService.Create(c.Request.Context(), actx, input)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	if !created {
		succeed(c, http.StatusOK, "A request for this person is already pending.", request)
		return
	}
	succeed(c, http.StatusCreated, "Consent requested.", request)
}

// ApproveRequest handles POST /portal/consent-requests/:requestId/approve
func (h *Handler) ApproveRequest(c *gin.Context) {
	actx, ok := accessContext(c)
	if !ok {
		return
	}
	var form decisionForm
	if !bind(c, &form) {
		return
	}
	input, errs := parseApprove(c.Param("requestId"), form)
	if len(errs) > 0 {
		failFields(c, errs)
		return
	}
	result, svcErr := h.requestService.Approve(c.Request.Context(), actx, input)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	succeed(c, http.StatusOK, "Request approved.", result)
}

// DenyRequest handles POST /portal/consent-requests/:requestId/deny
func (h *Handler) DenyRequest(c *gin.Context) {
	actx, ok := accessContext(c)
	if !ok {
		return
	}
	var form decisionForm
	if !bind(c, &form) {
		return
	}
	denied, svcErr := h.requestService.Deny(c.Request.Context(), actx, parseDeny(c.Param("requestId"), form))
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	succeed(c, http.StatusOK, "Request denied.", denied)
}
