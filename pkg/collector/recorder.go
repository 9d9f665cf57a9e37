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

package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/plantops/shopfloor/pkg/broker"
	"github.com/plantops/shopfloor/pkg/db"
	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

const (
	// lockStripes sizes the per-equipment lock table. Striping keeps
	// the close-prior/open-next read-modify-write serialized per
	// equipment while letting unrelated equipment record in parallel.
	lockStripes = 64

	// resolvedEventTTL is the fixed time-to-live for published events.
	resolvedEventTTL = 1 * time.Hour
)

// Recorder validates, persists, purges and publishes resolved events,
// enforcing the close-prior/open-next discipline for interval-style
// event types.
type Recorder struct {
	store            db.Service
	notifier         *Notifier
	logger           logger.Logger
	defaultRetention time.Duration

	locks [lockStripes]sync.Mutex

	mu         sync.RWMutex
	publishers []Publisher

	now func() time.Time
}

// NewRecorder creates a recorder backed by the given event store.
func NewRecorder(store db.Service, notifier *Notifier, defaultRetention time.Duration, log logger.Logger) *Recorder {
	return &Recorder{
		store:            store,
		notifier:         notifier,
		logger:           log,
		defaultRetention: defaultRetention,
		now:              time.Now,
	}
}

// SetPublishers replaces the outbound broker connections.
func (r *Recorder) SetPublishers(pubs []Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.publishers = pubs
}

// RecordResolution runs the full recording sequence for one event:
// validate, retention short-circuit, close-prior/open-next, save,
// purge, publish.
func (r *Recorder) RecordResolution(ctx context.Context, event *models.Event) error {
	if err := validate(event); err != nil {
		return err
	}

	equipment := event.Equipment

	retention := r.defaultRetention
	if equipment.Retention != nil {
		retention = time.Duration(*equipment.Retention)
	}

	// A configured zero retention disables history for this equipment.
	if retention == 0 {
		r.logger.Debug().Str("equipment", equipment.Name).Msg("Retention disabled, skipping event")
		return nil
	}

	lock := r.lockFor(equipment.Name)
	lock.Lock()
	defer lock.Unlock()

	toSave := []*models.Event{event}

	if !event.Type.IsProduction() {
		prior, err := r.store.LastOpenEvent(ctx, equipment.Name, event.Type)
		if err != nil {
			return fmt.Errorf("failed to fetch last open event: %w", err)
		}

		if prior != nil {
			prior.Close(event.Start)
			toSave = append([]*models.Event{prior}, toSave...)
		}
	}

	if err := r.store.SaveEvents(ctx, toSave...); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}

	r.purge(ctx, equipment.Name, retention)
	r.publish(ctx, event)

	return nil
}

// validate rejects events whose declared duration exceeds the elapsed
// time between start and end.
func validate(event *models.Event) error {
	if event.End == nil || event.Duration == nil {
		return nil
	}

	elapsed := event.End.Sub(event.Start)
	if elapsed < time.Duration(*event.Duration) {
		return fmt.Errorf("%w: elapsed %s, declared %s",
			ErrValidation, elapsed, time.Duration(*event.Duration))
	}

	return nil
}

func (r *Recorder) purge(ctx context.Context, equipment string, retention time.Duration) {
	cutoff := r.now().Add(-retention)

	count, err := r.store.PurgeEvents(ctx, equipment, cutoff)
	if err != nil {
		r.notifier.OnException(ctx,
			fmt.Sprintf("failed to purge events for equipment %s", equipment), err)

		return
	}

	if count > 0 {
		r.logger.Info().
			Str("equipment", equipment).
			Int64("purged", count).
			Time("cutoff", cutoff).
			Msg("Purged expired events")
	}
}

// publish sends the resolved event to every broker connection. Publish
// failures are reported per connection and never roll back the save.
func (r *Recorder) publish(ctx context.Context, event *models.Event) {
	r.mu.RLock()
	pubs := r.publishers
	r.mu.RUnlock()

	if len(pubs) == 0 {
		return
	}

	msg := models.NewResolvedEventMessage(event)

	for _, pub := range pubs {
		if err := pub.Publish(ctx, broker.SubjectResolvedEvents, msg, resolvedEventTTL); err != nil {
			r.logger.Error().Err(err).
				Str("broker", pub.Addr()).
				Str("equipment", msg.Equipment).
				Msg("Failed to publish resolved event")
		}
	}
}

func (r *Recorder) lockFor(equipment string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(equipment))

	return &r.locks[h.Sum32()%lockStripes]
}
