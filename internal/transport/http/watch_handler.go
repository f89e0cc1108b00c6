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

package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elev8/access/internal/guard"
	"github.com/elev8/access/internal/observability/logger"
)

// WatchAccess streams decisions for one path as Server-Sent Events. A new
// decision is sent whenever an identity event for the caller changes the
// inputs. Only the latest pending decision is kept for slow readers.
func (h *Handler) WatchAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		respondError(w, http.StatusBadRequest, "path must start with /")
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.WarnContext(ctx, "watch stream cannot flush", logger.Error(err))
		return
	}

	updates := make(chan guard.Decision, 1)
	latest := func(d guard.Decision) {
		for {
			select {
			case updates <- d:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}

	// The stream's token is fixed, so events about any user leave an
	// anonymous decision unchanged.
	opts := []guard.WatchOption{guard.IgnoreEvents()}
	if sess, _ := h.guard.Identify(ctx); sess != nil {
		opts = []guard.WatchOption{guard.ForUser(sess.UserID)}
	}

	streamID := uuid.NewString()
	log := slog.Default().With(logger.Component("watch"), slog.String("stream_id", streamID), logger.Path(path))
	log.DebugContext(ctx, "watch stream opened")

	if h.metrics != nil {
		h.metrics.WatcherOpened(ctx)
		defer h.metrics.WatcherClosed(ctx)
	}

	watcher := h.guard.Watch(ctx, path, h.events, latest, opts...)
	defer watcher.Close()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.DebugContext(ctx, "watch stream closed", logger.Generation(watcher.Generation()))
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case d := <-updates:
			payload, err := json.Marshal(CheckAccessResponse{Decision: d, Allowed: d.Allowed()})
			if err != nil {
				log.ErrorContext(ctx, "failed to encode decision", logger.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: decision\ndata: %s\n\n", payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
