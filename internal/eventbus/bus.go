// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package eventbus is the application-wide event channel the UI layer
// listens on.
package eventbus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Topic groups related events.
type Topic string

// Topics published by vfriends.
const (
	TopicAuth     Topic = "auth"
	TopicFriends  Topic = "friends"
	TopicPipeline Topic = "pipeline"
)

const subscriberBuffer = 100

// Event is one published message.
type Event struct {
	ID        ulid.ULID
	Topic     Topic
	Type      string
	Timestamp time.Time
	Payload   any
}

// Bus distributes events to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]chan Event
	logger *slog.Logger
}

// New creates a bus that discards its own diagnostics.
func New() *Bus {
	return &Bus{
		subs:   make(map[Topic][]chan Event),
		logger: slog.New(slog.DiscardHandler),
	}
}

// NewWithLogger creates a bus that reports dropped events to logger.
func NewWithLogger(logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	b := New()
	b.logger = logger
	return b, nil
}

// Subscribe creates a channel for receiving events on a topic.
func (b *Bus) Subscribe(topic Topic) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(topic Topic, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, sub := range subs {
		if sub == ch {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to every subscriber of topic and returns it.
// A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(topic Topic, eventType string, payload any) Event {
	event := Event{
		ID:        NewID(),
		Topic:     topic,
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped: subscriber buffer full",
				"topic", string(topic),
				"event_id", event.ID.String(),
				"event_type", eventType,
			)
		}
	}
	return event
}

// Emitter publishes onto a fixed topic.
type Emitter struct {
	bus   *Bus
	topic Topic
}

// Emitter returns a publisher bound to topic.
func (b *Bus) Emitter(topic Topic) Emitter {
	return Emitter{bus: b, topic: topic}
}

// Emit publishes payload with the given type.
func (e Emitter) Emit(eventType string, payload any) {
	e.bus.Publish(e.topic, eventType, payload)
}
