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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataSource_PhysicalKey(t *testing.T) {
	tests := []struct {
		name   string
		source DataSource
		key    string
	}{
		{
			name:   "polled tag server keyed by host and server identity",
			source: DataSource{Type: SourceOPCDA, Host: "line1-pc", ServerID: "Matrikon.OPC.Simulation.1"},
			key:    "line1-pc.Matrikon.OPC.Simulation.1",
		},
		{
			name:   "subscription server keyed by endpoint",
			source: DataSource{Type: SourceOPCUA, Host: "ignored", Endpoint: "opc.tcp://plc:4840/server"},
			key:    "opc.tcp://plc:4840/server",
		},
		{
			name:   "snmp keyed by host and port",
			source: DataSource{Type: SourceSNMP, Host: "switch-1", Port: 161},
			key:    "switch-1:161",
		},
		{
			name:   "http listener keyed by bind address",
			source: DataSource{Type: SourceHTTP, Host: "0.0.0.0", Port: 9091},
			key:    "0.0.0.0:9091",
		},
		{
			name:   "broker keyed by host and port",
			source: DataSource{Type: SourceMessaging, Host: "nats-1", Port: 4222},
			key:    "nats-1:4222",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.source.PhysicalKey())
		})
	}
}

func TestSourceType_Polled(t *testing.T) {
	assert.True(t, SourceOPCDA.Polled())
	assert.True(t, SourceSNMP.Polled())
	assert.False(t, SourceOPCUA.Polled())
	assert.False(t, SourceHTTP.Polled())
	assert.False(t, SourceMessaging.Polled())
}
