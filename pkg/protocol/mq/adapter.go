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

// Package mq implements the broker-connection protocol adapter. The
// source identifier of a resolver on a messaging source is the routing
// key its equipment events arrive on.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/plantops/shopfloor/pkg/broker"
	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
	"github.com/plantops/shopfloor/pkg/protocol"
)

var errForeignHandle = errors.New("handle was not created by the mq adapter")

// Adapter consumes equipment events from message brokers.
type Adapter struct {
	logger logger.Logger
}

// NewAdapter creates a broker source adapter.
func NewAdapter(log logger.Logger) *Adapter {
	return &Adapter{logger: log}
}

// Family implements protocol.Adapter.
func (*Adapter) Family() models.SourceType {
	return models.SourceMessaging
}

type handle struct {
	source *models.DataSource
	client *broker.Client
}

func (h *handle) Source() *models.DataSource { return h.source }

type subscription struct{}

// Cancel is a no-op; broker consumers stop when the handle disconnects.
func (subscription) Cancel() error { return nil }

// Connect implements protocol.Adapter by dialing the source broker.
func (a *Adapter) Connect(ctx context.Context, source *models.DataSource) (protocol.Handle, error) {
	client, err := broker.Connect(ctx, &models.BrokerConfig{
		Host:     source.Host,
		Port:     source.Port,
		Username: source.Username,
		Password: source.Password,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	return &handle{source: source, client: client}, nil
}

// Subscribe implements protocol.Adapter. Push-style: the routing key is
// registered as a consumer filter and values flow through the callback
// as they arrive.
func (a *Adapter) Subscribe(
	ctx context.Context, h protocol.Handle, itemID string, _ time.Duration, cb protocol.Callback) (protocol.Subscription, error) {
	hd, ok := h.(*handle)
	if !ok {
		return nil, errForeignHandle
	}

	if err := hd.client.Subscribe(ctx, consumerName(itemID), []string{itemID}, a.eventHandler(itemID, cb)); err != nil {
		return nil, err
	}

	return subscription{}, nil
}

// eventHandler decodes inbound equipment events. An undecodable
// payload is reported and dropped with a clean acknowledgement:
// returning an error would leave it unacknowledged and the broker
// would redeliver the same broken message forever.
func (a *Adapter) eventHandler(itemID string, cb protocol.Callback) broker.Handler {
	return func(subject string, data []byte) error {
		var msg models.EquipmentEventMessage

		if err := json.Unmarshal(data, &msg); err != nil {
			a.logger.Error().Err(err).
				Str("subject", subject).
				Msg("Dropping undecodable equipment event")

			return nil
		}

		sourceID := msg.SourceID
		if sourceID == "" {
			sourceID = itemID
		}

		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}

		cb(sourceID, msg.Value, ts)

		return nil
	}
}

// Disconnect implements protocol.Adapter.
func (*Adapter) Disconnect(_ context.Context, h protocol.Handle) error {
	hd, ok := h.(*handle)
	if !ok {
		return errForeignHandle
	}

	hd.client.Close()

	return nil
}

// consumerName derives a durable consumer name from a routing key.
// Durable names may not contain dots or wildcards.
func consumerName(itemID string) string {
	r := strings.NewReplacer(".", "_", "*", "any", ">", "all")
	return "equip_" + r.Replace(itemID)
}
