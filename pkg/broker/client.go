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

// Package broker connects the collector to its NATS JetStream broker:
// outbound resolved events, notifications and heartbeats, inbound
// equipment events and remote commands.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

const (
	// StreamName is the JetStream stream carrying all collector traffic.
	StreamName = "SHOPFLOOR"

	// SubjectResolvedEvents carries recorded equipment events.
	SubjectResolvedEvents = "shopfloor.event.resolved"
	// SubjectNotifications carries severity-tagged notifications.
	SubjectNotifications = "shopfloor.notification"
	// SubjectStatus carries periodic collector heartbeats.
	SubjectStatus = "shopfloor.status"
	// SubjectCommandPrefix prefixes per-collector command subjects.
	SubjectCommandPrefix = "shopfloor.command."
	// SubjectEquipmentPrefix prefixes inbound raw equipment values.
	SubjectEquipmentPrefix = "shopfloor.equipment."

	streamSubjects = "shopfloor.>"

	connectTimeout = 10 * time.Second
)

var errNotConnected = errors.New("broker client is not connected")

// CommandSubject returns the command subject for one collector.
func CommandSubject(collector string) string {
	return SubjectCommandPrefix + collector
}

// Client is one connection to a NATS broker.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	addr   string
	logger logger.Logger

	consumers []jetstream.ConsumeContext
}

// Connect dials the broker described by cfg and ensures the collector
// stream exists.
func Connect(ctx context.Context, cfg *models.BrokerConfig, log logger.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("shopfloor-collector"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
	}

	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	url := "nats://" + cfg.Addr()

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", cfg.Addr(), err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c := &Client{nc: nc, js: js, addr: cfg.Addr(), logger: log}

	if err := c.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info().Str("broker", cfg.Addr()).Msg("Connected to broker")

	return c, nil
}

// Addr returns the broker's host:port address.
func (c *Client) Addr() string { return c.addr }

func (c *Client) ensureStream(ctx context.Context) error {
	_, err := c.js.Stream(ctx, StreamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        StreamName,
			Subjects:    []string{streamSubjects},
			AllowMsgTTL: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
		}

		return nil
	} else if err != nil {
		return fmt.Errorf("failed to get stream %s: %w", StreamName, err)
	}

	return nil
}

// Publish marshals v as JSON and publishes it with a per-message TTL.
// A zero ttl publishes without expiry.
func (c *Client) Publish(ctx context.Context, subject string, v any, ttl time.Duration) error {
	if c.js == nil {
		return errNotConnected
	}

	payload, err := marshalMessage(v)
	if err != nil {
		return err
	}

	msg := &nats.Msg{Subject: subject, Data: payload}

	if ttl > 0 {
		msg.Header = nats.Header{}
		msg.Header.Set("Nats-TTL", strconv.FormatInt(int64(ttl.Seconds()), 10)+"s")
	}

	if _, err := c.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	return nil
}

// Handler processes one inbound message. A nil return acknowledges the
// message; an error leaves it unacknowledged for redelivery
// (at-least-once).
type Handler func(subject string, data []byte) error

// Subscribe creates a durable consumer over the given subjects and
// processes messages with the handler.
func (c *Client) Subscribe(ctx context.Context, consumerName string, subjects []string, handler Handler) error {
	if c.js == nil {
		return errNotConnected
	}

	consumer, err := c.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:        consumerName,
		FilterSubjects: subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Subject(), msg.Data()); err != nil {
			c.logger.Error().Err(err).
				Str("subject", msg.Subject()).
				Msg("Message handler failed, leaving message unacknowledged")

			if nakErr := msg.Nak(); nakErr != nil {
				c.logger.Error().Err(nakErr).Str("subject", msg.Subject()).Msg("Failed to NAK message")
			}

			return
		}

		if ackErr := msg.Ack(); ackErr != nil {
			c.logger.Error().Err(ackErr).Str("subject", msg.Subject()).Msg("Failed to acknowledge message")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer %s: %w", consumerName, err)
	}

	c.consumers = append(c.consumers, cc)

	return nil
}

// Close stops all consumers and drains the connection.
func (c *Client) Close() {
	for _, cc := range c.consumers {
		cc.Stop()
	}

	c.consumers = nil

	if c.nc != nil {
		c.nc.Close()
		c.nc = nil
		c.js = nil
	}
}
