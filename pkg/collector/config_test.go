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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/shopfloor/pkg/db"
	"github.com/plantops/shopfloor/pkg/models"
)

func TestConfig_ValidateAppliesDefaults(t *testing.T) {
	cfg := &Config{Database: &db.PostgresConfig{}}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaultWorkers, cfg.Workers)
	assert.Equal(t, defaultQueueDepth, cfg.QueueDepth)
	assert.Equal(t, defaultHeartbeatInterval, time.Duration(cfg.HeartbeatInterval))
	assert.Equal(t, defaultRetention, time.Duration(cfg.DefaultRetention))
}

func TestConfig_ValidateKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Database:          &db.PostgresConfig{},
		Workers:           3,
		QueueDepth:        32,
		HeartbeatInterval: models.Duration(30 * time.Second),
		DefaultRetention:  models.Duration(time.Hour),
	}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 32, cfg.QueueDepth)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.HeartbeatInterval))
	assert.Equal(t, time.Hour, time.Duration(cfg.DefaultRetention))
}

func TestConfig_ValidateRequiresDatabase(t *testing.T) {
	cfg := &Config{}

	require.ErrorIs(t, cfg.Validate(), errDatabaseRequired)
}
