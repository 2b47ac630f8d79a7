package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// TopicPublisher publishes JSON messages to one Pub/Sub topic.
type TopicPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewTopicPublisher creates a Pub/Sub client and binds it to topicID.
func NewTopicPublisher(ctx context.Context, projectID, topicID string) (*TopicPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("NewTopicPublisher: projectID and topicID cannot be empty")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &TopicPublisher{client: client, topic: client.Topic(topicID)}, nil
}

// PublishJSON marshals v, publishes it and waits for the server-assigned message ID.
func (p *TopicPublisher) PublishJSON(ctx context.Context, v any, attributes map[string]string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish to topic %s: %w", p.topic.ID(), err)
	}
	return id, nil
}

func (p *TopicPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
