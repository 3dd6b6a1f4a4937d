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

// Package provider provides the query client the stores use to reach the database.
package provider

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wso2/case-consent-api/internal/system/database"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
	"github.com/wso2/case-consent-api/internal/system/database/utils"
	"github.com/wso2/case-consent-api/internal/system/log"
)

// DBClientInterface defines the query operations available to stores.
type DBClientInterface interface {
	Query(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) ([]dbmodel.Row, error)
	Execute(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) (int64, error)
	BeginTx(ctx context.Context) (dbmodel.TxInterface, error)
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

type dbClient struct {
	db     *database.DB
	dbType string
}

// NewDBClient creates a client bound to the given connection.
func NewDBClient(db *database.DB) DBClientInterface {
	return &dbClient{db: db, dbType: db.Type()}
}

// Query runs a read query and returns normalized rows.
func (c *dbClient) Query(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) ([]dbmodel.Row, error) {
	return queryRows(ctx, c.db.DB, query, c.dbType, args...)
}

// Execute runs a write statement and returns the affected row count.
func (c *dbClient) Execute(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) (int64, error) {
	result, err := c.db.ExecContext(ctx, query.GetQuery(c.dbType), args...)
	if err != nil {
		return 0, fmt.Errorf("query %s failed: %w", query.ID, err)
	}
	return result.RowsAffected()
}

// BeginTx starts a new transaction.
func (c *dbClient) BeginTx(ctx context.Context) (dbmodel.TxInterface, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &transaction{tx: tx, dbType: c.dbType}, nil
}

type transaction struct {
	tx     *sqlx.Tx
	dbType string
}

func (t *transaction) Exec(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) (int64, error) {
	result, err := t.tx.ExecContext(ctx, query.GetQuery(t.dbType), args...)
	if err != nil {
		return 0, fmt.Errorf("query %s failed: %w", query.ID, err)
	}
	return result.RowsAffected()
}

func (t *transaction) Query(ctx context.Context, query dbmodel.DBQuery, args ...interface{}) ([]dbmodel.Row, error) {
	return queryRows(ctx, t.tx, query, t.dbType, args...)
}

func (t *transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *transaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func queryRows(ctx context.Context, q queryer, query dbmodel.DBQuery, dbType string, args ...interface{}) ([]dbmodel.Row, error) {
	rows, err := q.QueryxContext(ctx, query.GetQuery(dbType), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", query.ID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.GetLogger().Warn("Failed to close rows", log.String("query_id", query.ID), log.Error(closeErr))
		}
	}()

	results := make([]dbmodel.Row, 0)
	for rows.Next() {
		raw := make(map[string]interface{})
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("scan %s failed: %w", query.ID, err)
		}
		results = append(results, utils.NormalizeRow(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s failed: %w", query.ID, err)
	}
	return results, nil
}
