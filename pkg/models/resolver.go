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

package models

import "time"

// Equipment is a monitored piece of plant equipment. Retention
// semantics: nil means "use the process default", an explicit zero
// disables event persistence for this equipment entirely.
type Equipment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Retention *Duration `json:"retention,omitempty"`
}

// Resolver binds one equipment and one source identifier on a data
// source to a transformation that produces typed events. It is the
// unit of subscription planning and of dispatch lookup.
type Resolver struct {
	ID        int64       `json:"id"`
	Equipment *Equipment  `json:"equipment"`
	Source    *DataSource `json:"source"`
	// SourceID is the protocol-specific address of the monitored
	// point: tag path, node id, routing key or URL path. Unique
	// within the process dispatch table.
	SourceID  string `json:"source_id"`
	Collector string `json:"collector"`
	Type      EventType `json:"type"`
	// UpdatePeriod is the requested refresh period for polled and
	// subscription protocols. The activated subscription uses the
	// minimum period across all resolvers on the same physical source.
	UpdatePeriod Duration `json:"update_period,omitempty"`
	// WatchMode resolves values without recording or publishing them.
	WatchMode bool `json:"watch_mode,omitempty"`
	// Transform is an opaque reference to the transformation executed
	// by the resolution capability.
	Transform string `json:"transform,omitempty"`
}

// Period returns the requested update period as a time.Duration.
func (r *Resolver) Period() time.Duration {
	return time.Duration(r.UpdatePeriod)
}
