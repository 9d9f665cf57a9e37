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

import (
	"fmt"
	"strconv"
)

// SourceType is the protocol family of a data source.
type SourceType string

const (
	// SourceOPCDA is a classic polled-tag server addressed by host and
	// server identity (prog ID).
	SourceOPCDA SourceType = "opc_da"
	// SourceOPCUA is a subscription endpoint server addressed by URL.
	SourceOPCUA SourceType = "opc_ua"
	// SourceSNMP is a polled SNMP agent addressed by host and port.
	SourceSNMP SourceType = "snmp"
	// SourceHTTP is a push listener receiving equipment events over
	// HTTP POST or websocket.
	SourceHTTP SourceType = "http"
	// SourceMessaging is a broker connection delivering equipment
	// events on routing keys.
	SourceMessaging SourceType = "messaging"
)

// Polled reports whether the family delivers values by periodic
// polling rather than server-side subscription or push.
func (t SourceType) Polled() bool {
	return t == SourceOPCDA || t == SourceSNMP
}

// DataSource describes one physical endpoint that equipment data is
// collected from. A source is immutable for the lifetime of an
// orchestration session; resolvers reference it but do not own it.
type DataSource struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Type     SourceType `json:"type"`
	Host     string     `json:"host"`
	Port     int        `json:"port,omitempty"`
	Username string     `json:"username,omitempty"`
	Password string     `json:"password,omitempty"`
	// Endpoint is the full endpoint URL for subscription servers
	// (e.g. opc.tcp://host:4840/server).
	Endpoint string `json:"endpoint,omitempty"`
	// ServerID is the server identity for polled-tag servers.
	ServerID string `json:"server_id,omitempty"`
	// Params carries narrower protocol-specific settings opaquely.
	Params map[string]string `json:"params,omitempty"`
}

// PhysicalKey derives the grouping key that identifies one physical
// connection. Resolvers whose sources share a key share one live
// subscription.
func (s *DataSource) PhysicalKey() string {
	switch s.Type {
	case SourceOPCDA:
		return fmt.Sprintf("%s.%s", s.Host, s.ServerID)
	case SourceOPCUA:
		return s.Endpoint
	case SourceSNMP, SourceHTTP, SourceMessaging:
		return hostPort(s.Host, s.Port)
	default:
		return fmt.Sprintf("%s.%s", s.Host, s.Name)
	}
}

func hostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
