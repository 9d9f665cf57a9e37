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

package httpin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
	"github.com/plantops/shopfloor/pkg/protocol"
)

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}

func postEvent(t *testing.T, url string, msg *models.EquipmentEventMessage) *http.Response {
	t.Helper()

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	require.NoError(t, resp.Body.Close())

	return resp
}

func TestAdapter_DeliversPostedEvents(t *testing.T) {
	adapter := NewAdapter(logger.NewTestLogger())

	port := freePort(t)
	source := &models.DataSource{
		Name: "line1-callbacks",
		Type: models.SourceHTTP,
		Host: "127.0.0.1",
		Port: port,
	}

	ctx := context.Background()

	h, err := adapter.Connect(ctx, source)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, adapter.Disconnect(ctx, h))
	}()

	received := make(chan string, 1)
	cb := func(sourceID string, value any, _ time.Time) {
		received <- fmt.Sprintf("%s=%v", sourceID, value)
	}

	sub, err := adapter.Subscribe(ctx, h, "/line1/state", 0, cb)
	require.NoError(t, err)

	url := fmt.Sprintf("http://127.0.0.1:%d/event", port)

	resp := postEvent(t, url, &models.EquipmentEventMessage{
		SourceID: "/line1/state",
		Value:    "RUNNING",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case got := <-received:
		assert.Equal(t, "/line1/state=RUNNING", got)
	case <-time.After(2 * time.Second):
		t.Fatal("posted event never reached the callback")
	}

	// Unknown identifiers are rejected at the door.
	resp = postEvent(t, url, &models.EquipmentEventMessage{
		SourceID: "/line9/unknown",
		Value:    "x",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A canceled subscription no longer accepts deliveries.
	require.NoError(t, sub.Cancel())

	resp = postEvent(t, url, &models.EquipmentEventMessage{
		SourceID: "/line1/state",
		Value:    "STOPPED",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdapter_ConnectFailsWhenAddressTaken(t *testing.T) {
	adapter := NewAdapter(logger.NewTestLogger())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() {
		require.NoError(t, l.Close())
	}()

	source := &models.DataSource{
		Name: "line1-callbacks",
		Type: models.SourceHTTP,
		Host: "127.0.0.1",
		Port: l.Addr().(*net.TCPAddr).Port,
	}

	_, err = adapter.Connect(context.Background(), source)
	require.Error(t, err)
}

func TestAdapter_RejectsNonPost(t *testing.T) {
	adapter := NewAdapter(logger.NewTestLogger())

	port := freePort(t)
	source := &models.DataSource{
		Name: "line1-callbacks",
		Type: models.SourceHTTP,
		Host: "127.0.0.1",
		Port: port,
	}

	ctx := context.Background()

	h, err := adapter.Connect(ctx, source)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, adapter.Disconnect(ctx, h))
	}()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/event", port))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAdapter_RejectsForeignHandle(t *testing.T) {
	adapter := NewAdapter(logger.NewTestLogger())

	var foreign protocol.Handle = foreignHandle{}

	_, err := adapter.Subscribe(context.Background(), foreign, "x", 0, nil)
	require.ErrorIs(t, err, errForeignHandle)

	err = adapter.Disconnect(context.Background(), foreign)
	require.ErrorIs(t, err, errForeignHandle)
}

type foreignHandle struct{}

func (foreignHandle) Source() *models.DataSource { return nil }
