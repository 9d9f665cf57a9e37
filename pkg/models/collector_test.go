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

func TestCollectorState_TransitionTable(t *testing.T) {
	tests := []struct {
		from    CollectorState
		to      CollectorState
		allowed bool
	}{
		{CollectorDev, CollectorDev, true},
		{CollectorDev, CollectorReady, true},
		{CollectorDev, CollectorRunning, false},
		{CollectorReady, CollectorDev, true},
		{CollectorReady, CollectorReady, true},
		{CollectorReady, CollectorRunning, true},
		{CollectorRunning, CollectorDev, false},
		{CollectorRunning, CollectorReady, true},
		{CollectorRunning, CollectorRunning, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestCollectorState_Activatable(t *testing.T) {
	assert.False(t, CollectorDev.Activatable())
	assert.True(t, CollectorReady.Activatable())
	assert.True(t, CollectorRunning.Activatable())
}

func TestBrokerConfig_Addr(t *testing.T) {
	b := &BrokerConfig{Family: BrokerNATS, Host: "nats-1", Port: 4222}
	assert.Equal(t, "nats-1:4222", b.Addr())
}
