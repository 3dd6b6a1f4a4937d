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

package utils

import (
	"encoding/json"
	"net/http"

	"github.com/wso2/case-consent-api/internal/system/constants"
	"github.com/wso2/case-consent-api/internal/system/error/apierror"
	"github.com/wso2/case-consent-api/internal/system/error/serviceerror"
	"github.com/wso2/case-consent-api/internal/system/log"
)

func DecodeJSONBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.GetLogger().Warn("Failed to encode response", log.Error(err))
	}
}

// StatusCode maps a ServiceError to its HTTP status.
func StatusCode(err *serviceerror.ServiceError) int {
	if err.Type != serviceerror.ClientErrorType {
		return http.StatusInternalServerError
	}
	switch {
	case err.Is(serviceerror.ResourceNotFoundError):
		return http.StatusNotFound
	case err.Is(serviceerror.ConflictError), err.Is(serviceerror.AlreadyResolvedError):
		return http.StatusConflict
	case err.Is(serviceerror.PermissionError):
		return http.StatusForbidden
	case err.Is(serviceerror.UnauthenticatedError):
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// SendError writes a ServiceError as an HTTP response with appropriate status code
func SendError(w http.ResponseWriter, err *serviceerror.ServiceError) {
	JSONResponse(w, StatusCode(err), apierror.ErrorResponse{
		Code:        err.Error,
		Description: err.ErrorDescription,
	})
}
