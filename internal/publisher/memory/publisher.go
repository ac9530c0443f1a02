// Package memory records published events in memory for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Message is one Publish call.
type Message struct {
	Topic   string
	Payload any
}

// Publisher keeps every message in publish order.
type Publisher struct {
	mu       sync.RWMutex
	messages []Message
}

var _ crawler.Publisher = (*Publisher)(nil)

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns a sequential id.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish %s: %w", topic, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Message(nil), p.messages...)
}

// Topic returns the payloads published to topic.
func (p *Publisher) Topic(topic string) []any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []any
	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Noop discards every event.
type Noop struct{}

// Publish implements crawler.Publisher.
func (Noop) Publish(context.Context, string, any) (string, error) { return "", nil }
