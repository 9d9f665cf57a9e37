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
	"context"
	"net"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/plantops/shopfloor/pkg/broker"
	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

// Heartbeat publishes a periodic status message to every broker
// connection. Publish failures are logged, never fatal.
type Heartbeat struct {
	interval time.Duration
	hostname string
	ip       string
	logger   logger.Logger

	mu         sync.RWMutex
	publishers []Publisher

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewHeartbeat creates a heartbeat scheduler.
func NewHeartbeat(hostname string, interval time.Duration, log logger.Logger) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		hostname: hostname,
		ip:       localIP(),
		logger:   log,
		done:     make(chan struct{}),
	}
}

// SetPublishers replaces the outbound broker connections.
func (h *Heartbeat) SetPublishers(pubs []Publisher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.publishers = pubs
}

// Start begins periodic status publication.
func (h *Heartbeat) Start(ctx context.Context) {
	h.wg.Add(1)

	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.logger.Info().Dur("interval", h.interval).Msg("Heartbeat started")

		for {
			select {
			case <-h.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.beat(ctx)
			}
		}
	}()
}

// Stop cancels the scheduler and waits for it to exit.
func (h *Heartbeat) Stop() {
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()
}

func (h *Heartbeat) beat(ctx context.Context) {
	h.mu.RLock()
	pubs := h.publishers
	h.mu.RUnlock()

	if len(pubs) == 0 {
		return
	}

	status := &models.StatusMessage{
		Host:      h.hostname,
		IP:        h.ip,
		Timestamp: time.Now(),
	}

	if uptime, err := host.Uptime(); err == nil {
		status.UptimeSec = uptime
	}

	if avg, err := load.Avg(); err == nil {
		status.Load1 = avg.Load1
	}

	// Status messages are superseded by the next beat; expire them
	// after two intervals.
	ttl := 2 * h.interval

	for _, pub := range pubs {
		if err := pub.Publish(ctx, broker.SubjectStatus, status, ttl); err != nil {
			h.logger.Error().Err(err).
				Str("broker", pub.Addr()).
				Msg("Failed to publish heartbeat")
		}
	}
}

// localIP resolves the host's outbound IP without sending traffic.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}

	defer func() {
		_ = conn.Close()
	}()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}

	return "127.0.0.1"
}
