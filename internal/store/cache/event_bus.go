// Copyright 2026 The Elev8 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

// DefaultEventChannel is the pub/sub channel identity events travel on.
const DefaultEventChannel = "elev8:identity:events"

// EventBus carries identity events between service instances. Events
// published on any instance reach the local subscribers of every instance
// once Run is active.
type EventBus struct {
	client  *redis.Client
	channel string
	local   *identity.MemoryBus
	logger  *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewEventBus creates a bus on channel. An empty channel selects the
// default.
func NewEventBus(client *redis.Client, channel string) *EventBus {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &EventBus{
		client:  client,
		channel: channel,
		local:   identity.NewMemoryBus(),
		logger:  slog.Default().With(logger.Component("event_bus")),
		ready:   make(chan struct{}),
	}
}

// Subscribe implements identity.EventSource
func (b *EventBus) Subscribe(fn func(identity.Event)) func() {
	return b.local.Subscribe(fn)
}

// Publish implements identity.Publisher
func (b *EventBus) Publish(ctx context.Context, ev identity.Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode identity event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish identity event: %w", err)
	}
	return nil
}

// Ready is closed once Run has joined the channel.
func (b *EventBus) Ready() <-chan struct{} {
	return b.ready
}

// Run relays channel messages to local subscribers until ctx ends.
func (b *EventBus) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.InfoContext(ctx, "identity event relay started", slog.String("channel", b.channel))

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev identity.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.WarnContext(ctx, "dropping malformed identity event", logger.Error(err))
				continue
			}
			_ = b.local.Publish(ctx, ev)
		}
	}
}
