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

// Package collector implements the orchestration engine: it plans and
// activates subscriptions across protocol families, dispatches raw
// values to resolvers on a worker pool, records resolved events with a
// close-prior/open-next discipline, and drives the collector lifecycle
// state machine.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plantops/shopfloor/pkg/broker"
	"github.com/plantops/shopfloor/pkg/db"
	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
	"github.com/plantops/shopfloor/pkg/protocol"
)

// Engine is the collector orchestration engine. One engine owns every
// collector definition bound to its host.
type Engine struct {
	cfg        *Config
	logger     logger.Logger
	store      db.Service
	resolution ResolutionService
	registry   *protocol.Registry
	notifier   *Notifier
	recorder   *Recorder
	hostname   string

	mu         sync.Mutex // serializes lifecycle transitions
	running    bool
	dispatcher *Dispatcher
	heartbeat  *Heartbeat
	collectors []*models.Collector
	brokers    []*broker.Client
	handles    map[string]protocol.Handle
	subs       map[string][]protocol.Subscription

	restartInFlight atomic.Bool
}

// New creates an engine. The resolution service and protocol adapter
// registry are external collaborators injected by the caller.
func New(
	cfg *Config, store db.Service, resolution ResolutionService,
	registry *protocol.Registry, log logger.Logger) (*Engine, error) {
	hostname := cfg.Host
	if hostname == "" {
		var err error

		hostname, err = os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve host identity: %w", err)
		}
	}

	notifier := NewNotifier(hostname, log)

	return &Engine{
		cfg:        cfg,
		logger:     log,
		store:      store,
		resolution: resolution,
		registry:   registry,
		notifier:   notifier,
		recorder:   NewRecorder(store, notifier, time.Duration(cfg.DefaultRetention), log),
		hostname:   hostname,
		handles:    make(map[string]protocol.Handle),
		subs:       make(map[string][]protocol.Subscription),
	}, nil
}

// Start implements the lifecycle.Service interface.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Startup(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return ctx.Err()
}

// Stop implements the lifecycle.Service interface.
func (e *Engine) Stop(ctx context.Context) error {
	return e.Shutdown(ctx)
}

// RegisterExceptionListener registers the external exception listener.
func (e *Engine) RegisterExceptionListener(l ExceptionListener) {
	e.notifier.RegisterExceptionListener(l)
}

// Startup brings the engine online: resolve host identity, plan and
// activate subscriptions, start the dispatcher and heartbeat, then
// transition owned collectors to RUNNING. A protocol failure here
// aborts startup; no subscription set can be trusted after one.
func (e *Engine) Startup(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errAlreadyRunning
	}

	e.logger.Info().Str("host", e.hostname).Msg("Starting collector orchestration")

	collectors, err := e.store.CollectorsByHost(ctx, []string{e.hostname})
	if err != nil {
		return fmt.Errorf("failed to load collectors for host %s: %w", e.hostname, err)
	}

	e.collectors = collectors

	if err := e.connectBrokers(ctx); err != nil {
		e.teardown(ctx)
		return err
	}

	resolvers, err := e.store.ResolversByHostAndState(
		ctx, []string{e.hostname}, []models.CollectorState{models.CollectorReady, models.CollectorRunning})
	if err != nil {
		e.teardown(ctx)
		return fmt.Errorf("failed to load resolvers: %w", err)
	}

	e.dispatcher = NewDispatcher(
		e.resolution, e.recorder, e.notifier, e.cfg.Workers, e.cfg.QueueDepth, e.logger)

	if err := e.dispatcher.Register(resolvers...); err != nil {
		e.teardown(ctx)
		return err
	}

	if err := e.activate(ctx, planGroups(resolvers, e.collectorStates())); err != nil {
		e.teardown(ctx)
		return err
	}

	e.dispatcher.Start(ctx)

	e.heartbeat = NewHeartbeat(e.hostname, time.Duration(e.cfg.HeartbeatInterval), e.logger)
	e.heartbeat.SetPublishers(e.publishers())
	e.heartbeat.Start(ctx)

	if err := e.subscribeCommands(ctx); err != nil {
		e.teardown(ctx)
		return err
	}

	for _, c := range e.collectors {
		e.requestTransition(ctx, c, models.CollectorRunning)
	}

	e.running = true

	e.notifier.OnInformation(ctx,
		fmt.Sprintf("data collection started on host %s with %d subscriptions", e.hostname, len(e.handles)))

	return nil
}

// Shutdown takes the engine offline in the safety order: invalidate
// the transformation cache, disconnect brokers, stop push listeners,
// disconnect polled adapters, disconnect subscription adapters, then
// transition owned collectors back to READY. Safe to call on an
// already-stopped engine.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running && len(e.handles) == 0 && len(e.brokers) == 0 {
		return nil
	}

	e.logger.Info().Str("host", e.hostname).Msg("Stopping collector orchestration")

	e.teardown(ctx)

	for _, c := range e.collectors {
		e.requestTransition(ctx, c, models.CollectorReady)
	}

	e.running = false

	return nil
}

// teardown releases every connection. Callers hold e.mu.
func (e *Engine) teardown(ctx context.Context) {
	if e.dispatcher != nil {
		e.dispatcher.Clear()
	}

	if e.heartbeat != nil {
		e.heartbeat.Stop()
		e.heartbeat = nil
	}

	for _, b := range e.brokers {
		b.Close()
	}

	e.brokers = nil
	e.notifier.SetPublishers(nil)
	e.recorder.SetPublishers(nil)

	e.disconnectFamilies(ctx, models.SourceMessaging)
	e.disconnectFamilies(ctx, models.SourceHTTP)
	e.disconnectFamilies(ctx, models.SourceOPCDA, models.SourceSNMP)
	e.disconnectFamilies(ctx, models.SourceOPCUA)

	if e.dispatcher != nil {
		e.dispatcher.Stop()
		e.dispatcher = nil
	}
}

// Restart stops the engine, resets the in-memory subscription maps and
// starts it again. Only one restart may proceed at a time; the stop
// phase is idempotent against an already-stopped engine.
func (e *Engine) Restart(ctx context.Context) error {
	if !e.restartInFlight.CompareAndSwap(false, true) {
		e.logger.Warn().Msg("Restart already in progress, ignoring request")
		return nil
	}

	defer e.restartInFlight.Store(false)

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("restart: stop phase failed: %w", err)
	}

	return e.Startup(ctx)
}

// RestartDataCollection rebuilds the subscription set without touching
// the broker connections or the heartbeat.
func (e *Engine) RestartDataCollection(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return errNotRunning
	}

	e.logger.Info().Msg("Restarting data collection")

	e.disconnectFamilies(ctx, models.SourceMessaging)
	e.disconnectFamilies(ctx, models.SourceHTTP)
	e.disconnectFamilies(ctx, models.SourceOPCDA, models.SourceSNMP)
	e.disconnectFamilies(ctx, models.SourceOPCUA)

	e.dispatcher.Clear()
	e.dispatcher.Stop()

	resolvers, err := e.store.ResolversByHostAndState(
		ctx, []string{e.hostname}, []models.CollectorState{models.CollectorReady, models.CollectorRunning})
	if err != nil {
		return fmt.Errorf("failed to load resolvers: %w", err)
	}

	e.dispatcher = NewDispatcher(
		e.resolution, e.recorder, e.notifier, e.cfg.Workers, e.cfg.QueueDepth, e.logger)

	if err := e.dispatcher.Register(resolvers...); err != nil {
		return err
	}

	if err := e.activate(ctx, planGroups(resolvers, e.collectorStates())); err != nil {
		return err
	}

	e.dispatcher.Start(ctx)

	e.notifier.OnInformation(ctx, "data collection restarted")

	return nil
}

// SubscribeToDataSource activates one physical source on demand.
// Already-active sources are left alone.
func (e *Engine) SubscribeToDataSource(ctx context.Context, source *models.DataSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return errNotRunning
	}

	key := source.PhysicalKey()
	if _, active := e.handles[key]; active {
		return nil
	}

	resolvers, err := e.store.ResolversByHostAndState(
		ctx, []string{e.hostname}, []models.CollectorState{models.CollectorReady, models.CollectorRunning})
	if err != nil {
		return fmt.Errorf("failed to load resolvers: %w", err)
	}

	var members []*models.Resolver

	for _, r := range resolvers {
		if r.Source != nil && r.Source.PhysicalKey() == key {
			members = append(members, r)
		}
	}

	if len(members) == 0 {
		return fmt.Errorf("%w: %s", errNoSuchSource, key)
	}

	for _, r := range members {
		if _, registered := e.dispatcher.Lookup(r.SourceID); !registered {
			if err := e.dispatcher.Register(r); err != nil {
				return err
			}
		}
	}

	return e.activate(ctx, planGroups(members, e.collectorStates()))
}

// UnsubscribeFromDataSource deactivates one physical source and drops
// its resolvers from the dispatch table.
func (e *Engine) UnsubscribeFromDataSource(ctx context.Context, source *models.DataSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := source.PhysicalKey()

	h, active := e.handles[key]
	if !active {
		return fmt.Errorf("%w: %s", errNoSuchSource, key)
	}

	e.disconnectHandle(ctx, key, h)
	e.dispatcher.Unregister(key)

	return nil
}

// activate is the planner's second phase: exactly one connection per
// group, then one subscription per member resolver. Any failure is a
// planning-time protocol error and aborts the caller.
func (e *Engine) activate(ctx context.Context, groups map[string]*SubscriptionGroup) error {
	for key, group := range groups {
		adapter, err := e.registry.Lookup(group.Source.Type)
		if err != nil {
			return err
		}

		h, err := adapter.Connect(ctx, group.Source)
		if err != nil {
			return fmt.Errorf("failed to connect to source %s: %w", key, err)
		}

		e.handles[key] = h

		for _, r := range group.Resolvers {
			sub, err := adapter.Subscribe(ctx, h, r.SourceID, group.Period, e.dispatcher.OnData)
			if err != nil {
				return fmt.Errorf("failed to subscribe to %s on %s: %w", r.SourceID, key, err)
			}

			e.subs[key] = append(e.subs[key], sub)
		}

		e.logger.Info().
			Str("source", key).
			Str("family", string(group.Source.Type)).
			Int("resolvers", len(group.Resolvers)).
			Dur("period", group.Period).
			Msg("Activated subscription group")
	}

	return nil
}

func (e *Engine) disconnectFamilies(ctx context.Context, families ...models.SourceType) {
	for key, h := range e.handles {
		for _, family := range families {
			if h.Source().Type == family {
				e.disconnectHandle(ctx, key, h)
				break
			}
		}
	}
}

func (e *Engine) disconnectHandle(ctx context.Context, key string, h protocol.Handle) {
	for _, sub := range e.subs[key] {
		if err := sub.Cancel(); err != nil {
			e.logger.Warn().Err(err).Str("source", key).Msg("Error canceling subscription")
		}
	}

	delete(e.subs, key)

	adapter, err := e.registry.Lookup(h.Source().Type)
	if err == nil {
		if err := adapter.Disconnect(ctx, h); err != nil {
			e.logger.Error().Err(err).Str("source", key).Msg("Error disconnecting source")
		}
	}

	delete(e.handles, key)
}

// connectBrokers opens one outbound connection per distinct broker
// address across the owned collectors.
func (e *Engine) connectBrokers(ctx context.Context) error {
	seen := make(map[string]bool)

	for _, c := range e.collectors {
		if c.Broker == nil || seen[c.Broker.Addr()] {
			continue
		}

		client, err := broker.Connect(ctx, c.Broker, e.logger)
		if err != nil {
			return fmt.Errorf("failed to connect broker for collector %s: %w", c.Name, err)
		}

		seen[c.Broker.Addr()] = true
		e.brokers = append(e.brokers, client)
	}

	pubs := e.publishers()
	e.notifier.SetPublishers(pubs)
	e.recorder.SetPublishers(pubs)

	return nil
}

func (e *Engine) publishers() []Publisher {
	pubs := make([]Publisher, 0, len(e.brokers))
	for _, b := range e.brokers {
		pubs = append(pubs, b)
	}

	return pubs
}

// subscribeCommands listens for remote commands addressed to each
// owned collector. Commands are acknowledged on receipt: a restart
// tears down the very consumer that would otherwise acknowledge
// afterwards, so at-most-once is the only coherent choice here.
func (e *Engine) subscribeCommands(ctx context.Context) error {
	for _, c := range e.collectors {
		if c.Broker == nil {
			continue
		}

		client := e.brokerFor(c.Broker.Addr())
		if client == nil {
			continue
		}

		collectorName := c.Name
		subject := broker.CommandSubject(collectorName)

		err := client.Subscribe(ctx, commandConsumerName(collectorName), []string{subject},
			func(_ string, data []byte) error {
				e.handleCommand(data, collectorName)
				return nil
			})
		if err != nil {
			return fmt.Errorf("failed to subscribe to commands for %s: %w", collectorName, err)
		}
	}

	return nil
}

func (e *Engine) handleCommand(data []byte, collectorName string) {
	var cmd models.CommandMessage

	if err := json.Unmarshal(data, &cmd); err != nil {
		e.logger.Warn().Err(err).Str("collector", collectorName).Msg("Dropping malformed command")
		return
	}

	switch cmd.Command {
	case models.CommandRestart:
		e.logger.Info().Str("collector", collectorName).Msg("Remote restart command received")

		// Restart on a worker goroutine: the command consumer itself
		// is torn down during the stop phase.
		go func() {
			if err := e.Restart(context.Background()); err != nil {
				e.notifier.OnException(context.Background(), "remote restart failed", err)
			}
		}()
	default:
		e.logger.Warn().
			Str("collector", collectorName).
			Str("command", cmd.Command).
			Msg("Ignoring unknown command")
	}
}

func (e *Engine) brokerFor(addr string) *broker.Client {
	for _, b := range e.brokers {
		if b.Addr() == addr {
			return b
		}
	}

	return nil
}

// requestTransition applies one lifecycle transition. A disallowed
// transition is logged and skipped; processing continues for other
// collectors. Accepted transitions are persisted.
func (e *Engine) requestTransition(ctx context.Context, c *models.Collector, target models.CollectorState) bool {
	if !c.State.CanTransitionTo(target) {
		e.logger.Warn().
			Str("collector", c.Name).
			Str("from", string(c.State)).
			Str("to", string(target)).
			Msg("Transition not allowed, skipping")

		return false
	}

	c.State = target

	if err := e.store.SaveCollectorState(ctx, c); err != nil {
		e.notifier.OnException(ctx,
			fmt.Sprintf("failed to persist state %s for collector %s", target, c.Name), err)
	}

	return true
}

// collectorStates maps owned collector names to their current states.
func (e *Engine) collectorStates() map[string]models.CollectorState {
	states := make(map[string]models.CollectorState, len(e.collectors))
	for _, c := range e.collectors {
		states[c.Name] = c.State
	}

	return states
}

func commandConsumerName(collector string) string {
	return "cmd_" + strings.ReplaceAll(collector, ".", "_")
}
