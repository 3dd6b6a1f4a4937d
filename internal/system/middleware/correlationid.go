/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/log"
)

type contextKey string

const correlationIDKey contextKey = log.LoggerKeyCorrelationID

var correlationHeaders = []string{constants.CorrelationIDHeaderName, "X-Request-ID", "X-Trace-ID"}

// CorrelationIDMiddleware tags each portal request with a correlation ID.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := extractCorrelationID(c.Request)
		c.Header(constants.CorrelationIDHeaderName, correlationID)
		c.Request = c.Request.WithContext(WithCorrelationID(c.Request.Context(), correlationID))
		c.Set(log.LoggerKeyCorrelationID, correlationID)
		c.Next()
	}
}

// WrapWithCorrelationID wraps an http.Handler with correlation ID middleware
func WrapWithCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := extractCorrelationID(r)
		w.Header().Set(constants.CorrelationIDHeaderName, correlationID)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), correlationID)))
	})
}

// WithCorrelationID stores the correlation ID on the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationID returns the correlation ID carried by ctx, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns a logger tagged with the request correlation ID.
func LoggerFromContext(ctx context.Context) *log.Logger {
	logger := log.GetLogger()
	if id := CorrelationID(ctx); id != "" {
		logger = logger.With(log.String(log.LoggerKeyCorrelationID, id))
	}
	return logger
}

func extractCorrelationID(r *http.Request) string {
	for _, header := range correlationHeaders {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}
	return uuid.New().String()
}
