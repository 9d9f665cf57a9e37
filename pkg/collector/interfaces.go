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

	"github.com/plantops/shopfloor/pkg/models"
)

// ResolutionService turns raw source values into typed events. The
// transformation engine behind it is an external collaborator; the
// core only invokes it.
type ResolutionService interface {
	// Invoke runs the resolver's transformation on one raw value.
	Invoke(ctx context.Context, resolver *models.Resolver, value any, timestamp time.Time) (*models.Event, error)
	// ClearCache drops any compiled transformation state.
	ClearCache()
}

// Publisher is one outbound broker connection.
type Publisher interface {
	// Publish sends a message on a subject with a per-message TTL.
	Publish(ctx context.Context, subject string, v any, ttl time.Duration) error
	// Addr identifies the connection for error reporting.
	Addr() string
}

// ExceptionListener receives error notifications after they have been
// logged and published.
type ExceptionListener interface {
	OnException(text string, err error)
}
