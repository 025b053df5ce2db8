package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/repositories"
)

// AuditLogRecorder implements AuditLogService by appending immutable entries to the
// audit collection.
type AuditLogRecorder struct {
	logs  repositories.AuditLogRepository
	now   func() time.Time
	newID func() string
}

// AuditLogRecorderDeps lists the collaborators of AuditLogRecorder.
type AuditLogRecorderDeps struct {
	Logs  repositories.AuditLogRepository
	Now   func() time.Time
	NewID func() string
}

// NewAuditLogRecorder constructs an AuditLogRecorder.
func NewAuditLogRecorder(deps AuditLogRecorderDeps) (*AuditLogRecorder, error) {
	if deps.Logs == nil {
		return nil, fmt.Errorf("audit log service: repository is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &AuditLogRecorder{logs: deps.Logs, now: now, newID: newID}, nil
}

// Record appends one audit entry.
func (r *AuditLogRecorder) Record(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("audit log: action is required")
	}
	record := domain.AuditLogEntry{
		ID:         r.newID(),
		ActorUID:   entry.ActorUID,
		StoreID:    entry.StoreID,
		Action:     entry.Action,
		EntityKind: entry.EntityKind,
		EntityID:   entry.EntityID,
		Detail:     entry.Detail,
		CreatedAt:  r.now().UTC(),
	}
	if err := r.logs.Append(ctx, record); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
