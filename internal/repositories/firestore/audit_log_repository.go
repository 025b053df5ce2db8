package firestore

import (
	"context"
	"errors"
	"time"

	"github.com/tiendaflow/api/internal/domain"
	pfirestore "github.com/tiendaflow/api/internal/platform/firestore"
)

const auditLogCollection = "audit_logs"

// AuditLogRepository appends immutable audit entries.
type AuditLogRepository struct {
	base *pfirestore.BaseRepository[auditLogDocument]
}

type auditLogDocument struct {
	ActorUID   string            `firestore:"actorUid"`
	StoreID    string            `firestore:"storeId"`
	Action     string            `firestore:"action"`
	EntityKind string            `firestore:"entityKind"`
	EntityID   string            `firestore:"entityId"`
	Detail     map[string]string `firestore:"detail,omitempty"`
	CreatedAt  time.Time         `firestore:"createdAt"`
}

// NewAuditLogRepository constructs a Firestore-backed audit log repository.
func NewAuditLogRepository(provider *pfirestore.Provider) (*AuditLogRepository, error) {
	if provider == nil {
		return nil, errors.New("audit log repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[auditLogDocument](provider, auditLogCollection, nil, nil)
	return &AuditLogRepository{base: base}, nil
}

// Append writes the entry under its pre-assigned ID. Entries are never updated.
func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	doc := auditLogDocument{
		ActorUID:   entry.ActorUID,
		StoreID:    entry.StoreID,
		Action:     entry.Action,
		EntityKind: entry.EntityKind,
		EntityID:   entry.EntityID,
		Detail:     entry.Detail,
		CreatedAt:  entry.CreatedAt.UTC(),
	}
	_, err := r.base.Create(ctx, entry.ID, doc)
	return err
}
