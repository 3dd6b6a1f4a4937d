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

package constants

const (
	AuthorizationHeaderName = "Authorization"
	ContentTypeHeaderName   = "Content-Type"
	CorrelationIDHeaderName = "X-Correlation-ID"
	OrgIDHeaderName         = "X-Organization-ID"
	ContentTypeJSON         = "application/json"
	DefaultPageSize         = 30
	MaxPageSize             = 100
	TokenTypeBearer         = "Bearer"

	APIBasePath    = "/api/v1"
	PortalBasePath = "/portal"

	// Aliases for convenience
	HeaderContentType = ContentTypeHeaderName
	HeaderOrgID       = OrgIDHeaderName
)
