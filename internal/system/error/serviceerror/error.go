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

package serviceerror

import "github.com/wso2/case-consent-api/internal/system/error/codes"

type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
}

var (
	InternalServerError = ServiceError{
		Type:             ServerErrorType,
		Code:             codes.InternalServerError,
		Error:            "internal_server_error",
		ErrorDescription: "An unexpected error occurred",
	}

	// DatabaseError never carries the underlying store error; callers log it instead.
	DatabaseError = ServiceError{
		Type:             ServerErrorType,
		Code:             codes.DatabaseError,
		Error:            "database_error",
		ErrorDescription: "Something went wrong while saving your changes. Please try again.",
	}

	InvalidRequestError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.InvalidRequest,
		Error:            "invalid_request",
		ErrorDescription: "The request is invalid",
	}

	ResourceNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ResourceNotFound,
		Error:            "resource_not_found",
		ErrorDescription: "Resource not found",
	}

	ConflictError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ConflictError,
		Error:            "conflict",
		ErrorDescription: "Request conflicts with current state",
	}

	AlreadyResolvedError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ConsentRequestAlreadyResolved,
		Error:            "already_resolved",
		ErrorDescription: "This request has already been resolved",
	}

	ValidationError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ValidationError,
		Error:            "validation_error",
		ErrorDescription: "Validation failed",
	}

	// PermissionError never says which check failed.
	PermissionError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.PermissionDenied,
		Error:            "permission_denied",
		ErrorDescription: "You do not have permission to perform this action",
	}

	UnauthenticatedError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.Unauthenticated,
		Error:            "unauthenticated",
		ErrorDescription: "Authentication is required",
	}
)

func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:             baseError.Type,
		Code:             baseError.Code,
		Error:            baseError.Error,
		ErrorDescription: description,
	}
}

// New returns a copy of baseError with its default description.
func New(baseError ServiceError) *ServiceError {
	e := baseError
	return &e
}

// Is reports whether err was derived from baseError.
func (e *ServiceError) Is(baseError ServiceError) bool {
	return e != nil && e.Code == baseError.Code && e.Error == baseError.Error
}
