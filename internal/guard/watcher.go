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

package guard

import (
	"context"
	"sync"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

// Watcher keeps a decision current for one navigation. It re-runs the
// guard on every Navigate and on every identity event it observes. Only
// the newest run may publish; older runs are cancelled and their results
// dropped.
type Watcher struct {
	guard       *Guard
	publish     func(Decision)
	userID      string
	deaf        bool
	constraints []access.Constraint

	ctx         context.Context
	unsubscribe func()

	mu     sync.Mutex
	gen    uint64
	path   string
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// ForUser ignores identity events about other users.
func ForUser(userID string) WatchOption {
	return func(w *Watcher) { w.userID = userID }
}

// IgnoreEvents stops identity events from re-running the watcher. Only
// Navigate and Refresh trigger runs.
func IgnoreEvents() WatchOption {
	return func(w *Watcher) { w.deaf = true }
}

// WithConstraints adds constraints to every run.
func WithConstraints(c ...access.Constraint) WatchOption {
	return func(w *Watcher) { w.constraints = append(w.constraints, c...) }
}

// Watch starts watching path. ctx bounds every run and carries whatever
// the session provider reads. publish is called for each surviving
// terminal decision, one call at a time. A nil source disables event
// driven re-runs.
func (g *Guard) Watch(ctx context.Context, path string, source identity.EventSource, publish func(Decision), opts ...WatchOption) *Watcher {
	w := &Watcher{
		guard:   g,
		publish: publish,
		ctx:     ctx,
		path:    path,
	}
	for _, opt := range opts {
		opt(w)
	}

	if source != nil && !w.deaf {
		w.unsubscribe = source.Subscribe(w.onEvent)
	}
	w.trigger("")
	return w
}

func (w *Watcher) onEvent(ev identity.Event) {
	if w.userID != "" && ev.UserID != w.userID {
		return
	}
	w.trigger("")
}

// Navigate re-runs the guard for a new path.
func (w *Watcher) Navigate(path string) {
	w.trigger(path)
}

// Refresh re-runs the guard for the current path.
func (w *Watcher) Refresh() {
	w.trigger("")
}

// Generation returns the number of runs started so far.
func (w *Watcher) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen
}

func (w *Watcher) trigger(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if path != "" {
		w.path = path
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.gen++
	gen := w.gen
	runPath := w.path
	ctx, cancel := context.WithCancel(w.ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(ctx, cancel, gen, runPath)
}

func (w *Watcher) run(ctx context.Context, cancel context.CancelFunc, gen uint64, path string) {
	defer w.wg.Done()
	defer cancel()

	d := w.guard.Evaluate(ctx, path, w.constraints...)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || gen != w.gen || ctx.Err() != nil {
		w.guard.logger.DebugContext(ctx, "discarding superseded guard run",
			logger.Generation(gen),
			logger.Path(path),
		)
		return
	}
	w.publish(d)
}

// Close stops the watcher and waits for in-flight runs to finish. No
// decision is published after Close returns.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.wg.Wait()
}
