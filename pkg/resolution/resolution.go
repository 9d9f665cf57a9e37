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

// Package resolution provides the default value-to-event resolution
// service. Transformation scripting is an external capability; this
// implementation maps a raw value straight into an open event of the
// resolver's type, which is what most availability-style resolvers
// need.
package resolution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plantops/shopfloor/pkg/models"
)

var errNoEquipment = fmt.Errorf("resolver has no equipment binding")

// Passthrough resolves raw values without invoking an external
// transformation. The raw value is carried on the event's transient
// input/output fields for watch-mode inspection.
type Passthrough struct{}

// NewPassthrough creates a passthrough resolution service.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Invoke builds an open event of the resolver's type at the value's
// timestamp.
func (p *Passthrough) Invoke(
	_ context.Context, resolver *models.Resolver, value any, timestamp time.Time) (*models.Event, error) {
	if resolver.Equipment == nil {
		return nil, errNoEquipment
	}

	event := &models.Event{
		ID:        uuid.New().String(),
		Equipment: resolver.Equipment,
		Type:      resolver.Type,
		Start:     timestamp,
		Reason:    fmt.Sprintf("%v", value),
		Input:     value,
		Output:    value,
	}

	return event, nil
}

// ClearCache is a no-op; the passthrough service holds no compiled
// transformation state.
func (p *Passthrough) ClearCache() {}
