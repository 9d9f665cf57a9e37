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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

func newTestDispatcher(
	store *MockStore, resolution *MockResolution, listener *MockListener) (*Dispatcher, *Notifier) {
	log := logger.NewTestLogger()
	notifier := NewNotifier("test-host", log)

	if listener != nil {
		notifier.RegisterExceptionListener(listener)
	}

	recorder := NewRecorder(store, notifier, testRetention, log)

	return NewDispatcher(resolution, recorder, notifier, 2, 16, log), notifier
}

func testResolver(sourceID string) *models.Resolver {
	return &models.Resolver{
		SourceID:  sourceID,
		Equipment: &models.Equipment{Name: "press-1"},
		Source:    snmpSource("plc-1"),
		Collector: "line1",
		Type:      models.EventAvailability,
	}
}

func TestDispatcher_RejectsDuplicateSourceID(t *testing.T) {
	d, _ := newTestDispatcher(&MockStore{}, &MockResolution{}, nil)

	require.NoError(t, d.Register(testResolver("tag.a")))

	err := d.Register(testResolver("tag.a"))
	require.ErrorIs(t, err, errDuplicateSourceID)
}

func TestDispatcher_UnknownSourceReportedAndDropped(t *testing.T) {
	store := &MockStore{}
	resolution := &MockResolution{}
	listener := &MockListener{}

	d, _ := newTestDispatcher(store, resolution, listener)

	reported := make(chan error, 1)
	listener.On("OnException", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		reported <- args.Error(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	defer d.Stop()

	d.OnData("nobody.knows.this", 42, time.Now())

	select {
	case err := <-reported:
		assert.ErrorIs(t, err, ErrConfiguration)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an exception for the unconfigured source")
	}

	// The pool must survive the bad value and keep serving known sources.
	resolver := testResolver("tag.known")
	require.NoError(t, d.Register(resolver))

	resolved := make(chan struct{}, 1)
	event := &models.Event{
		Equipment: resolver.Equipment,
		Type:      resolver.Type,
		Start:     time.Now(),
	}

	resolution.On("Invoke", mock.Anything, resolver, "up", mock.Anything).Return(event, nil)
	store.On("LastOpenEvent", mock.Anything, "press-1", models.EventAvailability).Return(nil, nil)
	store.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	store.On("PurgeEvents", mock.Anything, "press-1", mock.Anything).
		Run(func(mock.Arguments) { resolved <- struct{}{} }).
		Return(int64(0), nil)

	d.OnData("tag.known", "up", time.Now())

	select {
	case <-resolved:
	case <-time.After(2 * time.Second):
		t.Fatal("worker pool did not recover after the unconfigured source")
	}
}

func TestDispatcher_ResolutionErrorDropsValue(t *testing.T) {
	store := &MockStore{}
	resolution := &MockResolution{}
	listener := &MockListener{}

	d, _ := newTestDispatcher(store, resolution, listener)

	resolver := testResolver("tag.bad")
	require.NoError(t, d.Register(resolver))

	reported := make(chan error, 1)
	listener.On("OnException", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		reported <- args.Error(1)
	})

	resolution.On("Invoke", mock.Anything, resolver, mock.Anything, mock.Anything).
		Return(nil, errors.New("script blew up"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	defer d.Stop()

	d.OnData("tag.bad", 7, time.Now())

	select {
	case err := <-reported:
		assert.ErrorIs(t, err, ErrResolution)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a resolution exception")
	}

	store.AssertNotCalled(t, "SaveEvents", mock.Anything, mock.Anything)
}

func TestDispatcher_WatchModeSkipsRecording(t *testing.T) {
	store := &MockStore{}
	resolution := &MockResolution{}

	d, _ := newTestDispatcher(store, resolution, nil)

	resolver := testResolver("tag.watched")
	resolver.WatchMode = true
	require.NoError(t, d.Register(resolver))

	invoked := make(chan struct{}, 1)
	event := &models.Event{
		Equipment: resolver.Equipment,
		Type:      resolver.Type,
		Start:     time.Now(),
		Input:     99,
		Output:    "running",
	}

	resolution.On("Invoke", mock.Anything, resolver, 99, mock.Anything).
		Run(func(mock.Arguments) { invoked <- struct{}{} }).
		Return(event, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	defer d.Stop()

	d.OnData("tag.watched", 99, time.Now())

	select {
	case <-invoked:
	case <-time.After(2 * time.Second):
		t.Fatal("watch-mode resolver was never invoked")
	}

	// Give an erroneous recording a chance to surface before asserting.
	time.Sleep(50 * time.Millisecond)
	store.AssertNotCalled(t, "SaveEvents", mock.Anything, mock.Anything)
}

func TestDispatcher_ClearEmptiesTableAndCache(t *testing.T) {
	resolution := &MockResolution{}
	resolution.On("ClearCache").Return()

	d, _ := newTestDispatcher(&MockStore{}, resolution, nil)

	require.NoError(t, d.Register(testResolver("tag.a")))
	d.Clear()

	_, ok := d.Lookup("tag.a")
	assert.False(t, ok)
	resolution.AssertCalled(t, "ClearCache")
}

func TestDispatcher_UnregisterRemovesSourceResolvers(t *testing.T) {
	d, _ := newTestDispatcher(&MockStore{}, &MockResolution{}, nil)

	onShared := testResolver("tag.a")
	onOther := testResolver("tag.b")
	onOther.Source = snmpSource("plc-2")

	require.NoError(t, d.Register(onShared, onOther))

	d.Unregister("plc-1:161")

	_, ok := d.Lookup("tag.a")
	assert.False(t, ok)
	_, ok = d.Lookup("tag.b")
	assert.True(t, ok)
}
