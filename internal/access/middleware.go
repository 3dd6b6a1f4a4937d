package access

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

var publicPaths = []string{"/health"}

// Authenticate resolves the caller from the bearer token. Failures never say which check failed.
func (m *TokenManager) Authenticate(r *http.Request) (Context, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "AccessMiddleware"))

	header := r.Header.Get(constants.AuthorizationHeaderName)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], constants.TokenTypeBearer) {
		return Context{}, serviceerror.New(serviceerror.UnauthenticatedError)
	}

	claims, err := m.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		logger.Debug("Rejected access token", log.Error(err))
		return Context{}, serviceerror.New(serviceerror.UnauthenticatedError)
	}

	actx, err := BuildContext(claims, r.Header.Get(constants.OrgIDHeaderName))
	if err != nil {
		logger.Debug("Rejected organization selection", log.String("profile_id", claims.Subject), log.Error(err))
		return Context{}, serviceerror.New(serviceerror.PermissionError)
	}
	return actx, nil
}

// Middleware authenticates API requests and stores the access context on the request.
func Middleware(m *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			actx, svcErr := m.Authenticate(r)
			if svcErr != nil {
				utils.SendError(w, svcErr)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), actx)))
		})
	}
}

// GinMiddleware is the portal flavour of Middleware.
func GinMiddleware(m *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, svcErr := m.Authenticate(c.Request)
		if svcErr != nil {
			c.AbortWithStatusJSON(utils.StatusCode(svcErr), gin.H{
				"ok":      false,
				"message": svcErr.ErrorDescription,
			})
			return
		}
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), actx))
		c.Next()
	}
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
