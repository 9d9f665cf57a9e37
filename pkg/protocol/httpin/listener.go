/*
 * Copyright 2025 PlantOps, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package httpin implements the push-listener protocol adapter.
// Equipment controllers deliver raw values by POSTing an equipment
// event to /event or by streaming the same JSON shape over the
// /ws websocket endpoint.
package httpin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
	"github.com/plantops/shopfloor/pkg/protocol"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	shutdownTimeout = 5 * time.Second
)

var errForeignHandle = errors.New("handle was not created by the httpin adapter")

// Adapter runs one HTTP listener per physical source. Push sources
// deliver values without per-item subscriptions; Subscribe only
// registers the item so unknown identifiers can be rejected at the
// door instead of in the dispatcher.
type Adapter struct {
	logger logger.Logger
}

// NewAdapter creates a push listener adapter.
func NewAdapter(log logger.Logger) *Adapter {
	return &Adapter{logger: log}
}

// Family implements protocol.Adapter.
func (*Adapter) Family() models.SourceType {
	return models.SourceHTTP
}

type handle struct {
	source *models.DataSource
	server *http.Server

	mu    sync.RWMutex
	items map[string]protocol.Callback
}

func (h *handle) Source() *models.DataSource { return h.source }

func (h *handle) callbackFor(sourceID string) (protocol.Callback, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cb, ok := h.items[sourceID]

	return cb, ok
}

type subscription struct {
	handle *handle
	itemID string
}

func (s *subscription) Cancel() error {
	s.handle.mu.Lock()
	defer s.handle.mu.Unlock()

	delete(s.handle.items, s.itemID)

	return nil
}

// Connect implements protocol.Adapter by starting the listener.
func (a *Adapter) Connect(_ context.Context, source *models.DataSource) (protocol.Handle, error) {
	h := &handle{
		source: source,
		items:  make(map[string]protocol.Callback),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/event", a.handleEvent(h))
	mux.HandleFunc("/ws", a.handleWebsocket(h))

	h.server = &http.Server{
		Addr:         source.PhysicalKey(),
		Handler:      mux,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	// Bind synchronously so a dead listener fails planning instead of
	// surfacing later in steady state.
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start push listener on %s: %w", source.PhysicalKey(), err)
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).
				Str("addr", h.server.Addr).
				Msg("Push listener stopped unexpectedly")
		}
	}()

	a.logger.Info().
		Str("source", source.Name).
		Str("addr", source.PhysicalKey()).
		Msg("Push listener started")

	return h, nil
}

// Subscribe implements protocol.Adapter. Push sources deliver without
// an explicit per-item subscription, so this only registers the item.
func (*Adapter) Subscribe(
	_ context.Context, h protocol.Handle, itemID string, _ time.Duration, cb protocol.Callback) (protocol.Subscription, error) {
	hd, ok := h.(*handle)
	if !ok {
		return nil, errForeignHandle
	}

	hd.mu.Lock()
	hd.items[itemID] = cb
	hd.mu.Unlock()

	return &subscription{handle: hd, itemID: itemID}, nil
}

// Disconnect implements protocol.Adapter.
func (a *Adapter) Disconnect(ctx context.Context, h protocol.Handle) error {
	hd, ok := h.(*handle)
	if !ok {
		return errForeignHandle
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := hd.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop push listener on %s: %w", hd.source.PhysicalKey(), err)
	}

	return nil
}

func (a *Adapter) handleEvent(h *handle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var msg models.EquipmentEventMessage

		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid event payload", http.StatusBadRequest)
			return
		}

		if !a.deliver(h, &msg) {
			http.Error(w, "unknown source identifier", http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *Adapter) handleWebsocket(h *handle) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
			return
		}

		defer func() {
			if closeErr := conn.Close(); closeErr != nil {
				a.logger.Debug().Err(closeErr).Msg("Error closing websocket")
			}
		}()

		for {
			var msg models.EquipmentEventMessage

			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					a.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket read failed")
				}

				return
			}

			if !a.deliver(h, &msg) {
				a.logger.Warn().
					Str("source_id", msg.SourceID).
					Str("remote", r.RemoteAddr).
					Msg("Dropping websocket event for unknown source identifier")
			}
		}
	}
}

// deliver routes one inbound message to its registered callback.
func (a *Adapter) deliver(h *handle, msg *models.EquipmentEventMessage) bool {
	cb, ok := h.callbackFor(msg.SourceID)
	if !ok {
		return false
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	cb(msg.SourceID, msg.Value, ts)

	return true
}
