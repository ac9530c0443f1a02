// Package pubsub publishes crawl events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// EventAttribute carries the event name on every message so subscribers can filter.
const EventAttribute = "event"

// Publisher sends JSON payloads to one topic.
type Publisher struct {
	topic *pubsub.Topic
}

var _ crawler.Publisher = (*Publisher)(nil)

// New returns a Publisher for topicID. The topic must already exist.
func New(ctx context.Context, client *pubsub.Client, topicID string) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	if topicID == "" {
		return nil, &crawler.ConfigurationError{Reason: "publisher.pubsub.topic is required"}
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", topicID, err)
	}
	if !ok {
		return nil, &crawler.ConfigurationError{Reason: fmt.Sprintf("pubsub topic %s does not exist", topicID)}
	}
	return &Publisher{topic: topic}, nil
}

// Publish marshals payload to JSON, tags it with the event name and waits for the server id.
func (p *Publisher) Publish(ctx context.Context, event string, payload any) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", event, err)
	}
	msg := &pubsub.Message{Data: data, Attributes: map[string]string{EventAttribute: event}}
	if saved, ok := payload.(crawler.PostingSaved); ok {
		msg.Attributes["platform"] = string(saved.Platform)
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", event, err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
