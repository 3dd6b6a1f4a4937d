package audit

import (
	"net/http"
	"strconv"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

type auditHandler struct {
	service AuditServiceInterface
}

func newAuditHandler(service AuditServiceInterface) *auditHandler {
	return &auditHandler{service: service}
}

// handleList handles GET /audit-events?entityType=&entityRef=&limit=
func (h *auditHandler) handleList(w http.ResponseWriter, r *http.Request) {
	actx, ok := access.FromContext(r.Context())
	if !ok {
		utils.SendError(w, serviceerror.New(serviceerror.UnauthenticatedError))
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	response, serviceErr := h.service.ListByEntity(r.Context(), actx, query.Get("entityType"), query.Get("entityRef"), limit)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}
	utils.JSONResponse(w, http.StatusOK, response)
}
