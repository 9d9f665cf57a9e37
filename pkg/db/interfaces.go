/*
 * Copyright 2025 PlantOps, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package db persists collector state and equipment event history.
package db

import (
	"context"
	"time"

	"github.com/plantops/shopfloor/pkg/models"
)

// Service represents all database operations the collector core needs.
type Service interface {
	Close()

	// Configuration reads.

	// CollectorsByHost returns the collector definitions bound to any
	// of the given host names.
	CollectorsByHost(ctx context.Context, hosts []string) ([]*models.Collector, error)
	// ResolversByHostAndState returns every resolver whose collector
	// runs on one of the hosts and is in one of the states.
	ResolversByHostAndState(
		ctx context.Context, hosts []string, states []models.CollectorState) ([]*models.Resolver, error)

	// Event history.

	// LastOpenEvent returns the most recent event of the given type
	// for the equipment that has no end time yet, or nil.
	LastOpenEvent(ctx context.Context, equipment string, eventType models.EventType) (*models.Event, error)
	// SaveEvents persists the given events in one transaction.
	SaveEvents(ctx context.Context, events ...*models.Event) error
	// PurgeEvents deletes the equipment's closed events older than
	// cutoff and returns the number removed. Open events are kept.
	PurgeEvents(ctx context.Context, equipment string, cutoff time.Time) (int64, error)

	// Collector state.

	// SaveCollectorState persists an accepted lifecycle transition.
	SaveCollectorState(ctx context.Context, collector *models.Collector) error
}
