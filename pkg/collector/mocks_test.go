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
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/plantops/shopfloor/pkg/models"
)

// MockStore is a mock implementation of db.Service.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Close() {
	m.Called()
}

func (m *MockStore) CollectorsByHost(ctx context.Context, hosts []string) ([]*models.Collector, error) {
	args := m.Called(ctx, hosts)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Collector), args.Error(1)
}

func (m *MockStore) ResolversByHostAndState(
	ctx context.Context, hosts []string, states []models.CollectorState) ([]*models.Resolver, error) {
	args := m.Called(ctx, hosts, states)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Resolver), args.Error(1)
}

func (m *MockStore) LastOpenEvent(
	ctx context.Context, equipment string, eventType models.EventType) (*models.Event, error) {
	args := m.Called(ctx, equipment, eventType)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockStore) SaveEvents(ctx context.Context, events ...*models.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockStore) PurgeEvents(ctx context.Context, equipment string, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, equipment, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) SaveCollectorState(ctx context.Context, collector *models.Collector) error {
	args := m.Called(ctx, collector)
	return args.Error(0)
}

// MockResolution is a mock implementation of ResolutionService.
type MockResolution struct {
	mock.Mock
}

func (m *MockResolution) Invoke(
	ctx context.Context, resolver *models.Resolver, value any, timestamp time.Time) (*models.Event, error) {
	args := m.Called(ctx, resolver, value, timestamp)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockResolution) ClearCache() {
	m.Called()
}

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, v any, ttl time.Duration) error {
	args := m.Called(ctx, subject, v, ttl)
	return args.Error(0)
}

func (m *MockPublisher) Addr() string {
	args := m.Called()
	return args.String(0)
}

// MockListener is a mock implementation of ExceptionListener.
type MockListener struct {
	mock.Mock
}

func (m *MockListener) OnException(text string, err error) {
	m.Called(text, err)
}
