// Package audit appends before/after snapshots of device mutations.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionAccess marks reads worth tracing, such as rejected uploads.
	ActionAccess Action = "access"
)

// Store persists audit entries.
type Store interface {
	AppendAudit(ctx context.Context, e *models.AuditLogEntryModel) error
}

// Entry describes one mutation. Before and After are marshaled to JSON; a
// nil snapshot is stored as NULL.
type Entry struct {
	Actor      *uuid.UUID
	Action     Action
	ObjectType string
	ObjectID   string
	Before     any
	After      any
	Note       string
}

type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record writes e through the transaction carried by ctx, if any.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	before, err := snapshot(e.Before)
	if err != nil {
		return err
	}
	after, err := snapshot(e.After)
	if err != nil {
		return err
	}
	return r.store.AppendAudit(ctx, &models.AuditLogEntryModel{
		ActorID:    e.Actor,
		Action:     string(e.Action),
		ObjectType: e.ObjectType,
		ObjectID:   e.ObjectID,
		Before:     before,
		After:      after,
		Note:       e.Note,
		Timestamp:  biztime.NowUTC(),
	})
}

func snapshot(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit snapshot: %w", err)
	}
	return datatypes.JSON(b), nil
}
