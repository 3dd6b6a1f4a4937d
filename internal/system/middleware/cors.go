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
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSOptions configures the CORS headers written for a route.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// WithCORS wraps a ServeMux handler with CORS handling. It returns the pattern
// unchanged so the result can be passed straight to mux.HandleFunc.
func WithCORS(pattern string, handler http.HandlerFunc, opts CORSOptions) (string, http.HandlerFunc) {
	return pattern, func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, opts.AllowedOrigins) {
			writeCORSHeaders(w.Header(), origin, opts)
		}
		handler(w, r)
	}
}

// PreflightHandler answers OPTIONS requests for every API route.
func PreflightHandler(opts CORSOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, opts.AllowedOrigins) {
			writeCORSHeaders(w.Header(), origin, opts)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CORSMiddleware is the gin flavour used by the portal router.
func CORSMiddleware(opts CORSOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && isOriginAllowed(origin, opts.AllowedOrigins) {
			writeCORSHeaders(c.Writer.Header(), origin, opts)
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

func writeCORSHeaders(h http.Header, origin string, opts CORSOptions) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(opts.AllowedMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(opts.AllowedHeaders, ", "))
	if opts.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Add("Vary", "Origin")
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// DefaultCORSOptions builds the route options from the configured origins.
func DefaultCORSOptions(allowedOrigins []string, allowCredentials bool) CORSOptions {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Organization-ID", "X-Correlation-ID"},
		AllowCredentials: allowCredentials,
	}
}
