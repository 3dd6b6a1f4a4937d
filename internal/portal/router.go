// Package portal serves the HTML form actions of the case-management portal.
package portal

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wso2/case-consent-api/internal/access"
	"github.com/wso2/case-consent-api/internal/system/middleware"
)

var registerFormNames sync.Once

// useFormFieldNames makes binding errors report the posted field name instead of the Go field.
func useFormFieldNames() {
	registerFormNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

// NewRouter builds the portal gin engine. Routes are relative to the portal base path.
func NewRouter(handler *Handler, tokens *access.TokenManager, corsOpts middleware.CORSOptions) *gin.Engine {
	useFormFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationIDMiddleware())
	router.Use(middleware.CORSMiddleware(corsOpts))
	router.Use(access.GinMiddleware(tokens))

	router.GET("/persons/:personId/consent", handler.ConsentView)

	consents := router.Group("/consent")
	{
		consents.POST("/save", handler.SaveConsent)
		consents.POST("/override", handler.OverrideConsent)
		consents.POST("/renew", handler.RenewConsent)
		consents.POST("/revoke", handler.RevokeConsent)
	}

	requests := router.Group("/consent-requests")
	{
		requests.POST("", handler.RequestConsent)
		requests.POST("/:requestId/approve", handler.ApproveRequest)
		requests.POST("/:requestId/deny", handler.DenyRequest)
	}

	return router
}
