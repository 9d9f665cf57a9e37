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

// EventType classifies the manufacturing event a resolver produces.
type EventType string

const (
	EventAvailability   EventType = "AVAILABILITY"
	EventProdGood       EventType = "PROD_GOOD"
	EventProdReject     EventType = "PROD_REJECT"
	EventProdStartup    EventType = "PROD_STARTUP"
	EventJobChange      EventType = "JOB_CHANGE"
	EventMaterialChange EventType = "MATL_CHANGE"
	EventCustom         EventType = "CUSTOM"
)

// IsProduction reports whether events of this type are independent
// point records. Production events are persisted alone; all other
// types close the prior open event of the same type when recorded.
func (t EventType) IsProduction() bool {
	switch t {
	case EventProdGood, EventProdReject, EventProdStartup:
		return true
	default:
		return false
	}
}

// Event is the resolved output of one resolver invocation. A closed
// predecessor is rewritten exactly once with its end time and duration,
// then never mutated again.
type Event struct {
	ID        string     `json:"id,omitempty"`
	Equipment *Equipment `json:"equipment"`
	Type      EventType  `json:"type"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	Duration  *Duration  `json:"duration,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Material  string     `json:"material,omitempty"`
	Job       string     `json:"job,omitempty"`
	Quantity  float64    `json:"quantity,omitempty"`
	UOM       string     `json:"uom,omitempty"`
	Shift     string     `json:"shift,omitempty"`

	// Raw resolution values, transient and never persisted.
	Input  any `json:"-"`
	Output any `json:"-"`
}

// Open reports whether the event has no end time yet.
func (e *Event) Open() bool {
	return e.End == nil
}

// Close stamps the event with its end time and elapsed duration.
func (e *Event) Close(end time.Time) {
	elapsed := Duration(end.Sub(e.Start))
	e.End = &end
	e.Duration = &elapsed
}
