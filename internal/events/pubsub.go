package events

import (
	"context"
	"encoding/json"
	"log"

	"cloud.google.com/go/pubsub"

	"github.com/mvolkov/gateward/internal/model"
)

// PubSubEmitter publishes abuse events to a Google Cloud Pub/Sub topic so
// moderation tooling can consume them off-process. Publish failures are
// logged and dropped — event delivery is best-effort and must never affect
// the detector's own return value.
type PubSubEmitter struct {
	ctx    context.Context
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubEmitter connects to the given project and topic.
func NewPubSubEmitter(ctx context.Context, projectID, topicID string) (*PubSubEmitter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PubSubEmitter{
		ctx:    ctx,
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// Emit publishes the event with type/subject attributes for filtering.
func (e *PubSubEmitter) Emit(event model.AbuseEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		log.Printf("pubsub marshal failed: %v", err)
		return
	}

	res := e.topic.Publish(e.ctx, &pubsub.Message{
		Data: b,
		Attributes: map[string]string{
			"type":    string(event.Type),
			"subject": event.Subject,
		},
	})
	if _, err := res.Get(e.ctx); err != nil {
		log.Printf("pubsub publish failed: %v", err)
	}
}

// Close releases the underlying client.
func (e *PubSubEmitter) Close() error {
	return e.client.Close()
}
