// Package memory records published upsert notices in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/druginfo-crawler/internal/crawler"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, PublishedMessage{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Messages returns the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Notices returns the upsert notices published to topic, in publish order.
func (p *Publisher) Notices(topic string) []crawler.UpsertNotice {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []crawler.UpsertNotice
	for _, msg := range p.messages {
		if msg.Topic != topic {
			continue
		}
		if notice, ok := msg.Payload.(crawler.UpsertNotice); ok {
			out = append(out, notice)
		}
	}
	return out
}
