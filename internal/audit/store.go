package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wso2/case-consent-api/internal/audit/model"
	dbmodel "github.com/wso2/case-consent-api/internal/system/database/model"
	"github.com/wso2/case-consent-api/internal/system/database/provider"
	dbutils "github.com/wso2/case-consent-api/internal/system/database/utils"
	"github.com/wso2/case-consent-api/internal/system/utils"
)

var (
	QueryInsertAuditEvent = dbmodel.DBQuery{
		ID:    "INSERT_AUDIT_EVENT",
		Query: "INSERT INTO AUDIT_EVENT (AUDIT_ID, ACTOR_PROFILE_ID, ACTION, ENTITY_TYPE, ENTITY_REF, META, ORG_ID, CREATED_TIME) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryListAuditEventsByEntity = dbmodel.DBQuery{
		ID: "LIST_AUDIT_EVENTS_BY_ENTITY",
		Query: "SELECT AUDIT_ID, ACTOR_PROFILE_ID, ACTION, ENTITY_TYPE, ENTITY_REF, META, ORG_ID, CREATED_TIME FROM AUDIT_EVENT " +
			"WHERE ENTITY_TYPE = ? AND ENTITY_REF = ? ORDER BY CREATED_TIME DESC LIMIT ?",
	}
)

// AuditStore appends audit events inside a caller's transaction and reads them back.
type AuditStore interface {
	Append(ctx context.Context, tx dbmodel.TxInterface, event *model.Event) error
	ListByEntity(ctx context.Context, entityType, entityRef string, limit int) ([]model.Event, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewAuditStore creates the audit store.
func NewAuditStore(dbClient provider.DBClientInterface) AuditStore {
	return &store{dbClient: dbClient}
}

// Append writes event within tx, filling in its id and timestamp when unset.
func (s *store) Append(ctx context.Context, tx dbmodel.TxInterface, event *model.Event) error {
	if event.ID == "" {
		event.ID = utils.GenerateUUID()
	}
	if event.CreatedTime == 0 {
		event.CreatedTime = utils.GetCurrentTimeMillis()
	}
	var meta *string
	if len(event.Meta) > 0 {
		b, err := json.Marshal(event.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal audit meta: %w", err)
		}
		m := string(b)
		meta = &m
	}
	_, err := tx.Exec(ctx, QueryInsertAuditEvent,
		event.ID,
		event.ActorProfileID,
		event.Action,
		event.EntityType,
		event.EntityRef,
		meta,
		event.OrgID,
		event.CreatedTime,
	)
	return err
}

func (s *store) ListByEntity(ctx context.Context, entityType, entityRef string, limit int) ([]model.Event, error) {
	rows, err := s.dbClient.Query(ctx, QueryListAuditEventsByEntity, entityType, entityRef, limit)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, mapToEvent(row))
	}
	return events, nil
}

func mapToEvent(row dbmodel.Row) model.Event {
	event := model.Event{
		ID:             dbutils.String(row, "AUDIT_ID"),
		ActorProfileID: dbutils.String(row, "ACTOR_PROFILE_ID"),
		Action:         dbutils.String(row, "ACTION"),
		EntityType:     dbutils.String(row, "ENTITY_TYPE"),
		EntityRef:      dbutils.String(row, "ENTITY_REF"),
		OrgID:          dbutils.OptionalInt64(row, "ORG_ID"),
		CreatedTime:    dbutils.Int64(row, "CREATED_TIME"),
	}
	if meta := dbutils.String(row, "META"); meta != "" {
		_ = json.Unmarshal([]byte(meta), &event.Meta)
	}
	return event
}
