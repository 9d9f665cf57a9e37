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
	"time"

	"github.com/plantops/shopfloor/pkg/models"
)

// SubscriptionGroup aggregates the resolvers sharing one physical
// source. Groups exist only between planning and activation; they are
// rebuilt from scratch on every (re)start.
type SubscriptionGroup struct {
	Key       string
	Source    *models.DataSource
	Resolvers []*models.Resolver
	// Period is the minimum requested update period across members
	// with a period. Zero means no member requested one (push
	// sources).
	Period time.Duration
}

// planGroups is the side-effect-free scan phase: it groups every
// resolver whose collector is activatable by physical-source key and
// computes each group's effective period. Activation happens exactly
// once per returned group, so enumeration order does not matter.
func planGroups(
	resolvers []*models.Resolver, states map[string]models.CollectorState) map[string]*SubscriptionGroup {
	groups := make(map[string]*SubscriptionGroup)

	for _, r := range resolvers {
		if r.Source == nil {
			continue
		}

		if state, ok := states[r.Collector]; !ok || !state.Activatable() {
			continue
		}

		key := r.Source.PhysicalKey()

		group, ok := groups[key]
		if !ok {
			group = &SubscriptionGroup{Key: key, Source: r.Source}
			groups[key] = group
		}

		group.Resolvers = append(group.Resolvers, r)

		if period := r.Period(); period > 0 {
			if group.Period == 0 || period < group.Period {
				group.Period = period
			}
		}
	}

	return groups
}
