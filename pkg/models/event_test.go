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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_IsProduction(t *testing.T) {
	assert.True(t, EventProdGood.IsProduction())
	assert.True(t, EventProdReject.IsProduction())
	assert.True(t, EventProdStartup.IsProduction())

	assert.False(t, EventAvailability.IsProduction())
	assert.False(t, EventJobChange.IsProduction())
	assert.False(t, EventMaterialChange.IsProduction())
	assert.False(t, EventCustom.IsProduction())
}

func TestEvent_Close(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	e := &Event{Type: EventAvailability, Start: start}

	require.True(t, e.Open())

	end := start.Add(42 * time.Minute)
	e.Close(end)

	require.False(t, e.Open())
	assert.Equal(t, end, *e.End)
	assert.Equal(t, 42*time.Minute, time.Duration(*e.Duration))
}

func TestEvent_RawValuesNotSerialized(t *testing.T) {
	e := &Event{
		Type:   EventAvailability,
		Start:  time.Now(),
		Input:  "raw-plc-value",
		Output: "transformed",
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "raw-plc-value")
	assert.NotContains(t, string(data), "transformed")
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
		error bool
	}{
		{name: "duration string", input: `"500ms"`, want: 500 * time.Millisecond},
		{name: "nanosecond number", input: `60000000000`, want: time.Minute},
		{name: "garbage string", input: `"soon"`, error: true},
		{name: "wrong type", input: `true`, error: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.error {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	d := Duration(90 * time.Second)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))
}

func TestNewResolvedEventMessage(t *testing.T) {
	end := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	dur := Duration(time.Hour)

	e := &Event{
		ID:        "ev-1",
		Equipment: &Equipment{Name: "press-1"},
		Type:      EventProdGood,
		Start:     end.Add(-time.Hour),
		End:       &end,
		Duration:  &dur,
		Quantity:  120,
		UOM:       "pcs",
		Input:     "never-on-the-wire",
	}

	msg := NewResolvedEventMessage(e)

	assert.Equal(t, "press-1", msg.Equipment)
	assert.Equal(t, EventProdGood, msg.Type)
	assert.Equal(t, float64(120), msg.Quantity)
	assert.Equal(t, &end, msg.End)
}
