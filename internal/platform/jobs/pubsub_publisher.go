package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/tiendaflow/api/internal/services"
)

// PubSubConfigEventPublisher publishes shipping configuration change events to a
// Pub/Sub topic so downstream quote caches can invalidate.
type PubSubConfigEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubConfigEventPublisher constructs a Pub/Sub backed config event publisher.
func NewPubSubConfigEventPublisher(topic *pubsub.Topic) (*PubSubConfigEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub config event publisher: topic is required")
	}
	return &PubSubConfigEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishShippingConfigEvent enqueues the event on the configured topic and returns
// the broker-assigned message ID.
func (p *PubSubConfigEventPublisher) PublishShippingConfigEvent(ctx context.Context, event services.ShippingConfigEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub config event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal config event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventId", event.EventID)
	setAttr(attrs, "storeId", event.StoreID)
	setAttr(attrs, "entityKind", event.EntityKind)
	setAttr(attrs, "action", event.Action)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish config event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
