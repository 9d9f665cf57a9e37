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

// Package snmp implements the polled-tag protocol adapter for SNMP
// agents. Each subscription polls one OID at the effective group
// period and delivers values through the uniform callback.
package snmp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
	"github.com/plantops/shopfloor/pkg/protocol"
)

const (
	defaultPort    = 161
	defaultTimeout = 5 * time.Second
	defaultRetries = 2
)

// Adapter polls SNMP agents. One UDP connection is shared by all
// subscriptions on a handle; requests are serialized because gosnmp
// clients are not safe for concurrent use.
type Adapter struct {
	logger logger.Logger
}

// NewAdapter creates an SNMP adapter.
func NewAdapter(log logger.Logger) *Adapter {
	return &Adapter{logger: log}
}

// Family implements protocol.Adapter.
func (*Adapter) Family() models.SourceType {
	return models.SourceSNMP
}

type handle struct {
	source *models.DataSource
	client *gosnmp.GoSNMP

	mu   sync.Mutex // serializes SNMP requests
	subs []*subscription
}

func (h *handle) Source() *models.DataSource { return h.source }

type subscription struct {
	done chan struct{}
	once sync.Once
}

func (s *subscription) Cancel() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Connect implements protocol.Adapter.
func (a *Adapter) Connect(_ context.Context, source *models.DataSource) (protocol.Handle, error) {
	port := source.Port
	if port == 0 {
		port = defaultPort
	}

	community := source.Params["community"]
	if community == "" {
		community = "public"
	}

	client := &gosnmp.GoSNMP{
		Target:    source.Host,
		Port:      uint16(port),
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   defaultTimeout,
		Retries:   defaultRetries,
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SNMP agent %s: %w", source.PhysicalKey(), err)
	}

	a.logger.Info().
		Str("source", source.Name).
		Str("target", source.PhysicalKey()).
		Msg("Connected to SNMP agent")

	return &handle{source: source, client: client}, nil
}

// Subscribe implements protocol.Adapter by polling the OID on a ticker.
func (a *Adapter) Subscribe(
	_ context.Context, h protocol.Handle, itemID string, period time.Duration, cb protocol.Callback) (protocol.Subscription, error) {
	hd, ok := h.(*handle)
	if !ok {
		return nil, errForeignHandle
	}

	if period <= 0 {
		period = defaultTimeout
	}

	sub := &subscription{done: make(chan struct{})}

	hd.mu.Lock()
	hd.subs = append(hd.subs, sub)
	hd.mu.Unlock()

	go a.pollLoop(hd, itemID, period, cb, sub.done)

	return sub, nil
}

func (a *Adapter) pollLoop(hd *handle, oid string, period time.Duration, cb protocol.Callback, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			value, err := a.get(hd, oid)
			if err != nil {
				a.logger.Warn().Err(err).
					Str("oid", oid).
					Str("target", hd.source.PhysicalKey()).
					Msg("SNMP poll failed")

				continue
			}

			cb(oid, value, time.Now())
		}
	}
}

func (a *Adapter) get(hd *handle, oid string) (any, error) {
	hd.mu.Lock()
	defer hd.mu.Unlock()

	result, err := hd.client.Get([]string{oid})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", oid, err)
	}

	if len(result.Variables) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoVariables, oid)
	}

	return pduValue(result.Variables[0]), nil
}

// pduValue converts an SNMP PDU into a plain Go value.
func pduValue(pdu gosnmp.SnmpPDU) any {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return string(b)
		}

		return pdu.Value
	case gosnmp.Counter64, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).Uint64()
	case gosnmp.Integer:
		return gosnmp.ToBigInt(pdu.Value).Int64()
	default:
		return pdu.Value
	}
}

// Disconnect implements protocol.Adapter.
func (a *Adapter) Disconnect(_ context.Context, h protocol.Handle) error {
	hd, ok := h.(*handle)
	if !ok {
		return errForeignHandle
	}

	hd.mu.Lock()
	subs := hd.subs
	hd.subs = nil
	hd.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Cancel()
	}

	if hd.client.Conn != nil {
		if err := hd.client.Conn.Close(); err != nil {
			a.logger.Warn().Err(err).
				Str("target", hd.source.PhysicalKey()).
				Msg("Error closing SNMP connection")
		}
	}

	return nil
}
