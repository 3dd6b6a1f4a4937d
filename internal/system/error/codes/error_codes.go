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

package codes

// Error codes for the Case Consent Service
const (
	// General errors
	InternalServerError = "SSE-5000"
	DatabaseError       = "SSE-5001"
	InvalidRequest      = "CSE-4000"
	ValidationError     = "CSE-4001"
	ResourceNotFound    = "CSE-4004"
	ConflictError       = "CSE-4009"
	PermissionDenied    = "CSE-4030"
	Unauthenticated     = "CSE-4010"

	// Consent-specific errors
	ConsentNotFound          = "CSE-4040"
	ConsentScopeInvalid      = "CSE-4041"
	ConsentNoOrganization    = "CSE-4042"
	ConsentNotCurrent        = "CSE-4043"
	ConsentAttestationNeeded = "CSE-4044"

	// Consent request-specific errors
	ConsentRequestNotFound        = "CSE-4060"
	ConsentRequestAlreadyResolved = "CSE-4091"
	ConsentRequestPurposeMissing  = "CSE-4061"

	// Person/organization errors
	PersonNotFound       = "CSE-4070"
	OrganizationNotFound = "CSE-4071"
)
