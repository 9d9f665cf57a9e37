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
	"sync"
	"time"

	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

type job struct {
	sourceID  string
	value     any
	timestamp time.Time
}

// Dispatcher routes inbound raw values to their resolvers on a
// bounded worker pool. The dispatch table is populated during planning
// and read concurrently by protocol callbacks during steady state.
type Dispatcher struct {
	resolution ResolutionService
	recorder   *Recorder
	notifier   *Notifier
	logger     logger.Logger

	workers    int
	queueDepth int

	mu    sync.RWMutex
	table map[string]*models.Resolver

	jobs chan job
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewDispatcher creates a dispatcher with an empty dispatch table.
func NewDispatcher(
	resolution ResolutionService, recorder *Recorder, notifier *Notifier,
	workers, queueDepth int, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		resolution: resolution,
		recorder:   recorder,
		notifier:   notifier,
		logger:     log,
		workers:    workers,
		queueDepth: queueDepth,
		table:      make(map[string]*models.Resolver),
		jobs:       make(chan job, queueDepth),
		done:       make(chan struct{}),
	}
}

// Register adds resolvers to the dispatch table. Source identifiers
// must be unique process-wide; a duplicate indicates a broken
// configuration and fails registration.
func (d *Dispatcher) Register(resolvers ...*models.Resolver) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range resolvers {
		if _, exists := d.table[r.SourceID]; exists {
			return fmt.Errorf("%w: %s", errDuplicateSourceID, r.SourceID)
		}

		d.table[r.SourceID] = r
	}

	return nil
}

// Lookup returns the resolver for a source identifier.
func (d *Dispatcher) Lookup(sourceID string) (*models.Resolver, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.table[sourceID]

	return r, ok
}

// Unregister removes the resolvers bound to a physical source key.
func (d *Dispatcher) Unregister(physicalKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, r := range d.table {
		if r.Source != nil && r.Source.PhysicalKey() == physicalKey {
			delete(d.table, id)
		}
	}
}

// Clear empties the dispatch table and the transformation cache.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.table = make(map[string]*models.Resolver)
	d.mu.Unlock()

	d.resolution.ClearCache()
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			for {
				select {
				case <-d.done:
					return
				case j := <-d.jobs:
					d.process(ctx, j)
				}
			}
		}()
	}

	d.logger.Info().Int("workers", d.workers).Msg("Resolution dispatcher started")
}

// OnData is the uniform protocol callback. A full queue blocks the
// delivering adapter, applying backpressure at the protocol edge.
func (d *Dispatcher) OnData(sourceID string, value any, timestamp time.Time) {
	j := job{sourceID: sourceID, value: value, timestamp: timestamp}

	select {
	case <-d.done:
		d.logger.Debug().Str("source_id", sourceID).Msg("Dropping value, dispatcher stopped")
	case d.jobs <- j:
	}
}

// Stop halts the pool, waiting up to the grace period for in-flight
// tasks before abandoning them.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.done) })

	finished := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(stopGracePeriod):
		d.logger.Warn().Msg("Dispatcher stop grace period elapsed, abandoning in-flight tasks")
	}
}

// process runs one resolution task. Any failure is reported and the
// value dropped; nothing here may take down the pool or disturb other
// in-flight tasks.
func (d *Dispatcher) process(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			d.notifier.OnException(ctx,
				fmt.Sprintf("panic while resolving source %s", j.sourceID),
				fmt.Errorf("%v", r))
		}
	}()

	resolver, ok := d.Lookup(j.sourceID)
	if !ok {
		d.notifier.OnException(ctx,
			fmt.Sprintf("dropping value from unconfigured source %s", j.sourceID),
			fmt.Errorf("%w: %s", ErrConfiguration, j.sourceID))

		return
	}

	event, err := d.resolution.Invoke(ctx, resolver, j.value, j.timestamp)
	if err != nil {
		d.notifier.OnException(ctx,
			fmt.Sprintf("dropping value from source %s", j.sourceID),
			fmt.Errorf("%w: %w", ErrResolution, err))

		return
	}

	if resolver.WatchMode {
		d.logger.Info().
			Str("source_id", j.sourceID).
			Str("type", string(resolver.Type)).
			Interface("input", event.Input).
			Interface("output", event.Output).
			Msg("Watch mode resolution")

		return
	}

	if err := d.recorder.RecordResolution(ctx, event); err != nil {
		d.notifier.OnException(ctx,
			fmt.Sprintf("failed to record event from source %s", j.sourceID), err)
	}
}
