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
	"strconv"
	"strings"
)

// The helpers below smooth over driver differences: MySQL returns text columns as []byte
// and booleans as integers, PostgreSQL returns native strings and bools.

// NormalizeRow upper-cases column names and converts []byte values to strings.
func NormalizeRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out[strings.ToUpper(k)] = v
	}
	return out
}

// String reads a string column.
func String(row map[string]interface{}, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// OptionalString reads a nullable string column.
func OptionalString(row map[string]interface{}, key string) *string {
	if row[key] == nil {
		return nil
	}
	s := String(row, key)
	return &s
}

// Int64 reads an integer column.
func Int64(row map[string]interface{}, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	}
	return 0
}

// OptionalInt64 reads a nullable integer column.
func OptionalInt64(row map[string]interface{}, key string) *int64 {
	if row[key] == nil {
		return nil
	}
	n := Int64(row, key)
	return &n
}

// Bool reads a boolean column stored either as BOOLEAN or TINYINT.
func Bool(row map[string]interface{}, key string) bool {
	switch v := row[key].(type) {
	case bool:
		return v
	case string:
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "t")
	case []byte:
		s := string(v)
		return s == "1" || strings.EqualFold(s, "true") || strings.EqualFold(s, "t")
	case nil:
		return false
	}
	return Int64(row, key) != 0
}
