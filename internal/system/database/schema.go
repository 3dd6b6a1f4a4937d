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

package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/wso2/case-consent-api/internal/system/log"
)

//go:embed scripts/*.sql
var scripts embed.FS

// Schema returns the DDL statements for dbType in the order they must run.
func Schema(dbType string) ([]string, error) {
	content, err := scripts.ReadFile("scripts/" + dbType + ".sql")
	if err != nil {
		return nil, fmt.Errorf("no schema for database type %q", dbType)
	}
	var statements []string
	for _, stmt := range strings.Split(string(content), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements, nil
}

// ApplySchema creates any missing tables and indexes. Every statement is idempotent.
func (db *DB) ApplySchema(ctx context.Context) (int, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Database"))

	statements, err := Schema(db.dbType)
	if err != nil {
		return 0, err
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	logger.Info("Schema applied", log.String("type", db.dbType), log.Int("statements", len(statements)))
	return len(statements), nil
}
