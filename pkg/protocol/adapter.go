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

// Package protocol defines the uniform contract between the collector
// core and the per-family protocol adapters.
package protocol

import (
	"context"
	"time"

	"github.com/plantops/shopfloor/pkg/models"
)

// Callback is the single data delivery shape every adapter uses,
// regardless of protocol family.
type Callback func(sourceID string, value any, timestamp time.Time)

// Handle represents one live physical connection to a data source.
type Handle interface {
	// Source returns the data source this handle is connected to.
	Source() *models.DataSource
}

// Subscription represents one monitored item on a connection.
type Subscription interface {
	// Cancel stops delivery for this item.
	Cancel() error
}

// Adapter is the per-family connection contract. Exactly one physical
// connection is opened per distinct physical source; the planner
// guarantees Connect is called once per PhysicalKey.
//
// Push-style adapters (HTTP listeners, broker sources) deliver values
// through the same Callback without a per-item Subscribe; their
// Subscribe registers the item filter and returns immediately.
type Adapter interface {
	// Family returns the protocol family this adapter serves.
	Family() models.SourceType
	// Connect opens the physical connection for a source.
	Connect(ctx context.Context, source *models.DataSource) (Handle, error)
	// Subscribe registers one monitored item. period is the effective
	// update period for the whole connection (the minimum requested
	// period across resolvers sharing it); polled adapters use it as
	// their poll interval, subscription adapters pass it as the
	// server-side publishing interval hint.
	Subscribe(ctx context.Context, h Handle, itemID string, period time.Duration, cb Callback) (Subscription, error)
	// Disconnect closes the physical connection and cancels all of
	// its subscriptions.
	Disconnect(ctx context.Context, h Handle) error
}
