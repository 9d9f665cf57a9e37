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

// Severity tags broker notifications by importance.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// CommandRestart is the only remote command currently understood.
const CommandRestart = "restart"

// EquipmentEventMessage is the inbound wire shape for a raw equipment
// value arriving over a broker or push listener.
type EquipmentEventMessage struct {
	SourceID  string    `json:"source_id"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// CommandMessage is an inbound remote command addressed to a collector.
type CommandMessage struct {
	Command string `json:"command"`
}

// ResolvedEventMessage is the outbound wire shape of a recorded event.
type ResolvedEventMessage struct {
	ID        string     `json:"id"`
	Equipment string     `json:"equipment"`
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
}

// NewResolvedEventMessage flattens an event into its wire shape.
func NewResolvedEventMessage(e *Event) *ResolvedEventMessage {
	msg := &ResolvedEventMessage{
		ID:       e.ID,
		Type:     e.Type,
		Start:    e.Start,
		End:      e.End,
		Duration: e.Duration,
		Reason:   e.Reason,
		Material: e.Material,
		Job:      e.Job,
		Quantity: e.Quantity,
		UOM:      e.UOM,
		Shift:    e.Shift,
	}

	if e.Equipment != nil {
		msg.Equipment = e.Equipment.Name
	}

	return msg
}

// NotificationMessage is an outbound severity-tagged notification.
type NotificationMessage struct {
	Text      string    `json:"text"`
	Severity  Severity  `json:"severity"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusMessage is the periodic collector heartbeat.
type StatusMessage struct {
	Host      string    `json:"host"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
	UptimeSec uint64    `json:"uptime_sec,omitempty"`
	Load1     float64   `json:"load1,omitempty"`
}
