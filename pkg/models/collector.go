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

// CollectorState is the lifecycle state of a collector definition.
type CollectorState string

const (
	// CollectorDev marks a collector that is still being configured.
	// DEV collectors never produce live subscriptions.
	CollectorDev CollectorState = "DEV"
	// CollectorReady marks a collector that is configured but not running.
	CollectorReady CollectorState = "READY"
	// CollectorRunning marks a collector with active subscriptions.
	CollectorRunning CollectorState = "RUNNING"
)

// allowedTransitions is the complete collector state transition table.
var allowedTransitions = map[CollectorState][]CollectorState{
	CollectorDev:     {CollectorDev, CollectorReady},
	CollectorReady:   {CollectorDev, CollectorReady, CollectorRunning},
	CollectorRunning: {CollectorReady, CollectorRunning},
}

// CanTransitionTo reports whether the transition s -> target is allowed.
func (s CollectorState) CanTransitionTo(target CollectorState) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}

	return false
}

// Activatable reports whether resolvers bound to a collector in this
// state may be turned into live subscriptions.
func (s CollectorState) Activatable() bool {
	return s == CollectorReady || s == CollectorRunning
}

// BrokerFamily identifies the message broker implementation a collector
// publishes to.
type BrokerFamily string

const (
	BrokerNATS BrokerFamily = "nats"
)

// BrokerConfig holds the connection parameters for a collector's
// outbound message broker.
type BrokerConfig struct {
	Family   BrokerFamily `json:"family,omitempty"`
	Host     string       `json:"host"`
	Port     int          `json:"port"`
	Username string       `json:"username,omitempty"`
	Password string       `json:"password,omitempty"`
}

// Addr returns the broker's host:port address.
func (b *BrokerConfig) Addr() string {
	return hostPort(b.Host, b.Port)
}

// Collector is a named data collection agent bound to one host. Its
// state is mutated only through accepted lifecycle transitions and is
// persisted after every accepted transition.
type Collector struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Host     string         `json:"host"`
	State    CollectorState `json:"state"`
	Broker   *BrokerConfig  `json:"broker,omitempty"`
	NotifyTo string         `json:"notify_to,omitempty"`
}
