package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/tiendaflow/api/internal/domain"
	pfirestore "github.com/tiendaflow/api/internal/platform/firestore"
	"github.com/tiendaflow/api/internal/platform/pagination"
)

const shippingZoneCollection = "shipping_zones"

const (
	defaultZonePageSize = 50
	maxZonePageSize     = 100
)

// ShippingZoneRepository persists store shipping zones in Firestore.
type ShippingZoneRepository struct {
	base *pfirestore.BaseRepository[shippingZoneDocument]
}

type shippingZoneDocument struct {
	StoreID     string    `firestore:"storeId"`
	Name        string    `firestore:"name"`
	Countries   []string  `firestore:"countries,omitempty"`
	States      []string  `firestore:"states,omitempty"`
	PostalCodes []string  `firestore:"postalCodes,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// NewShippingZoneRepository constructs a Firestore-backed zone repository.
func NewShippingZoneRepository(provider *pfirestore.Provider) (*ShippingZoneRepository, error) {
	if provider == nil {
		return nil, errors.New("shipping zone repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[shippingZoneDocument](provider, shippingZoneCollection, nil, nil)
	return &ShippingZoneRepository{base: base}, nil
}

// Insert creates the zone document, failing if the ID already exists.
func (r *ShippingZoneRepository) Insert(ctx context.Context, zone domain.ShippingZone) error {
	_, err := r.base.Create(ctx, zone.ID, zoneToDocument(zone))
	return err
}

// Update overwrites an existing zone document.
func (r *ShippingZoneRepository) Update(ctx context.Context, zone domain.ShippingZone) error {
	if _, err := r.base.Get(ctx, zone.ID); err != nil {
		return err
	}
	_, err := r.base.Set(ctx, zone.ID, zoneToDocument(zone))
	return err
}

// Delete removes the zone document.
func (r *ShippingZoneRepository) Delete(ctx context.Context, zoneID string) error {
	if _, err := r.base.Get(ctx, zoneID); err != nil {
		return err
	}
	return r.base.Delete(ctx, zoneID)
}

// FindByID loads one zone.
func (r *ShippingZoneRepository) FindByID(ctx context.Context, zoneID string) (domain.ShippingZone, error) {
	doc, err := r.base.Get(ctx, zoneID)
	if err != nil {
		return domain.ShippingZone{}, err
	}
	return zoneFromDocument(doc.ID, doc.Data), nil
}

// ListByStore pages through a store's zones ordered by creation time. The returned
// token addresses the next page and is empty on the last one.
func (r *ShippingZoneRepository) ListByStore(ctx context.Context, storeID string, pager domain.Pagination) (domain.CursorPage[domain.ShippingZone], error) {
	pageSize := pager.PageSize
	if pageSize <= 0 {
		pageSize = defaultZonePageSize
	}
	if pageSize > maxZonePageSize {
		pageSize = maxZonePageSize
	}

	var startAfter []any
	if strings.TrimSpace(pager.PageToken) != "" {
		decoded, err := pagination.DecodeToken(pager.PageToken)
		if err != nil {
			return domain.CursorPage[domain.ShippingZone]{}, fmt.Errorf("shipping zones: %w", pagination.ErrInvalidPageToken)
		}
		startAfter, err = zoneCursorValues(decoded)
		if err != nil {
			return domain.CursorPage[domain.ShippingZone]{}, fmt.Errorf("shipping zones: %w", pagination.ErrInvalidPageToken)
		}
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		q := query.
			Where("storeId", "==", storeID).
			OrderBy("createdAt", firestore.Asc).
			OrderBy(firestore.DocumentID, firestore.Asc).
			Limit(pageSize + 1)
		if len(startAfter) > 0 {
			q = q.StartAfter(startAfter...)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.ShippingZone]{}, err
	}

	page := domain.CursorPage[domain.ShippingZone]{}
	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}
	for _, doc := range docs {
		page.Items = append(page.Items, zoneFromDocument(doc.ID, doc.Data))
	}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.CreatedAt.UTC().Format(time.RFC3339Nano), last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.ShippingZone]{}, fmt.Errorf("shipping zones: encode page token: %w", err)
		}
		page.NextPageToken = token
	}
	return page, nil
}

// zoneCursorValues rebuilds the typed StartAfter values from the decoded token, whose
// JSON round trip turns timestamps into strings.
func zoneCursorValues(cursor pagination.Cursor) ([]any, error) {
	if len(cursor.StartAfter) != 2 {
		return nil, errors.New("unexpected cursor shape")
	}
	rawTime, ok := cursor.StartAfter[0].(string)
	if !ok {
		return nil, errors.New("cursor timestamp is not a string")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return nil, err
	}
	id, ok := cursor.StartAfter[1].(string)
	if !ok {
		return nil, errors.New("cursor document id is not a string")
	}
	return []any{createdAt, id}, nil
}

func zoneToDocument(zone domain.ShippingZone) shippingZoneDocument {
	return shippingZoneDocument{
		StoreID:     zone.StoreID,
		Name:        zone.Name,
		Countries:   zone.Countries,
		States:      zone.States,
		PostalCodes: zone.PostalCodes,
		CreatedAt:   zone.CreatedAt.UTC(),
		UpdatedAt:   zone.UpdatedAt.UTC(),
	}
}

func zoneFromDocument(id string, doc shippingZoneDocument) domain.ShippingZone {
	return domain.ShippingZone{
		ID:          id,
		StoreID:     doc.StoreID,
		Name:        doc.Name,
		Countries:   doc.Countries,
		States:      doc.States,
		PostalCodes: doc.PostalCodes,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
