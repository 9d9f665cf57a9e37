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
	"errors"
	"time"

	"github.com/plantops/shopfloor/pkg/db"
	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

const (
	defaultWorkers           = 8
	defaultQueueDepth        = 256
	defaultHeartbeatInterval = 60 * time.Second
	defaultRetention         = 7 * 24 * time.Hour
	// stopGracePeriod bounds how long shutdown waits for in-flight
	// resolution tasks before abandoning them.
	stopGracePeriod = time.Second
)

var errDatabaseRequired = errors.New("database configuration is required")

// Config is the collector engine configuration.
type Config struct {
	// Host overrides the OS hostname used to look up owned collectors.
	Host string `json:"host,omitempty"`
	// Workers sizes the resolution worker pool.
	Workers int `json:"workers,omitempty"`
	// QueueDepth bounds the dispatch queue; a full queue applies
	// backpressure to protocol callbacks.
	QueueDepth int `json:"queue_depth,omitempty"`
	// HeartbeatInterval is the status publication period.
	HeartbeatInterval models.Duration `json:"heartbeat_interval,omitempty"`
	// DefaultRetention applies to equipment without a configured
	// retention period.
	DefaultRetention models.Duration `json:"default_retention,omitempty"`

	Database *db.PostgresConfig `json:"database"`
	Logging  *logger.Config     `json:"logging,omitempty"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.Database == nil {
		return errDatabaseRequired
	}

	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}

	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = models.Duration(defaultHeartbeatInterval)
	}

	if c.DefaultRetention <= 0 {
		c.DefaultRetention = models.Duration(defaultRetention)
	}

	return nil
}
