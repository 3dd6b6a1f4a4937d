package consentrequest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/consentrequest/model"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/middleware"
)

type stubRequestService struct {
	mock.Mock
}

func (m *stubRequestService) Create(ctx context.Context, actx access.Context, input model.CreateInput) (*model.ConsentRequest, bool, *serviceerror.ServiceError) {
	args := m.Called(ctx, actx, input)
	request, _ := args.Get(0).(*model.ConsentRequest)
	svcErr, _ := args.Get(2).(*serviceerror.ServiceError)
	return request, args.Bool(1), svcErr
}

func (m *stubRequestService) Approve(ctx context.Context, actx access.Context, input model.ApproveInput) (*model.ApproveResult, *serviceerror.ServiceError) {
	args := m.Called(ctx, actx, input)
	result, _ := args.Get(0).(*model.ApproveResult)
	svcErr, _ := args.Get(1).(*serviceerror.ServiceError)
	return result, svcErr
}

func (m *stubRequestService) Deny(ctx context.Context, actx access.Context, input model.DenyInput) (*model.ConsentRequest, *serviceerror.ServiceError) {
	args := m.Called(ctx, actx, input)
	request, _ := args.Get(0).(*model.ConsentRequest)
	svcErr, _ := args.Get(1).(*serviceerror.ServiceError)
	return request, svcErr
}

func (m *stubRequestService) Get(ctx context.Context, actx access.Context, id string) (*model.ConsentRequest, *serviceerror.ServiceError) {
	args := m.Called(ctx, actx, id)
	request, _ := args.Get(0).(*model.ConsentRequest)
	svcErr, _ := args.Get(1).(*serviceerror.ServiceError)
	return request, svcErr
}

func (m *stubRequestService) List(ctx context.Context, actx access.Context, filter model.ListFilter) (*model.ListResponse, *serviceerror.ServiceError) {
	args := m.Called(ctx, actx, filter)
	page, _ := args.Get(0).(*model.ListResponse)
	svcErr, _ := args.Get(1).(*serviceerror.ServiceError)
	return page, svcErr
}

func serveRequest(service ConsentRequestServiceInterface, method, target, body string, actx access.Context) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	registerRoutes(mux, newConsentRequestHandler(service), middleware.DefaultCORSOptions(nil, false))
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(access.NewContext(req.Context(), actx))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateStatus(t *testing.T) {
	service := &stubRequestService{}
	caller := partner(5)
	input := model.CreateInput{PersonID: personID, Purpose: "intake", RequestedScopes: []string{}}
	service.On("Create", mock.Anything, caller, input).Return(pending(5), true, nil).Once()
	service.On("Create", mock.Anything, caller, input).Return(pending(5), false, nil).Once()

	body := `{"personId":42,"purpose":"intake"}`
	rec := serveRequest(service, http.MethodPost, "/api/v1/consent-requests", body, caller)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serveRequest(service, http.MethodPost, "/api/v1/consent-requests", body, caller)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveRequest(service, http.MethodPost, "/api/v1/consent-requests", `{"personId":42}`, caller)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "purpose is required")
}

func TestHandler_DenyAlreadyResolved(t *testing.T) {
	service := &stubRequestService{}
	caller := manager()
	service.On("Deny", mock.Anything, caller, model.DenyInput{RequestID: requestID}).
		Return(nil, serviceerror.New(serviceerror.AlreadyResolvedError))

	rec := serveRequest(service, http.MethodPost, "/api/v1/consent-requests/"+requestID+"/deny", "", caller)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_resolved")
}

func TestHandler_ListParsesQuery(t *testing.T) {
	service := &stubRequestService{}
	caller := manager()
	service.On("List", mock.Anything, caller, model.ListFilter{
		Status:   model.StatusPending,
		PersonID: int64Ptr(personID),
		Limit:    10,
		Offset:   20,
	}).Return(&model.ListResponse{Data: []model.ConsentRequest{}}, nil)

	rec := serveRequest(service, http.MethodGet, "/api/v1/consent-requests?status=pending&personId=42&limit=10&offset=20", "", caller)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveRequest(service, http.MethodGet, "/api/v1/consent-requests?personId=x", "", caller)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
