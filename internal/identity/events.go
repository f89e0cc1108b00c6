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

package identity

import (
	"context"
	"sync"
	"time"
)

// EventType identifies an identity change.
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventSignedOut      EventType = "signed_out"
	EventTokenRefreshed EventType = "token_refreshed"
	EventProfileUpdated EventType = "profile_updated"
)

// Event is a change to a user's session or profile.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}

// EventSource delivers identity events to subscribers.
type EventSource interface {
	// Subscribe registers fn for every future event. The returned function
	// removes the subscription and is safe to call more than once.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Publisher broadcasts identity events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// MemoryBus is an in-process EventSource and Publisher.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(Event)
}

// NewMemoryBus creates an empty bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint64]func(Event))}
}

// Subscribe implements EventSource
func (b *MemoryBus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to every current subscriber.
func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return nil
}
