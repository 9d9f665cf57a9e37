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
	"sync"
	"time"

	"github.com/plantops/shopfloor/pkg/broker"
	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

// Notification TTLs scale with severity so the most important
// messages outlive the rest on the broker.
const (
	ttlInfo    = 1 * time.Hour
	ttlWarning = 2 * time.Hour
	ttlError   = 4 * time.Hour
)

// Notifier fans internal log-level events out to the local log and,
// when broker connections exist, to severity-tagged broker messages.
type Notifier struct {
	logger logger.Logger
	source string

	mu         sync.RWMutex
	publishers []Publisher
	listener   ExceptionListener
}

// NewNotifier creates a notifier. source tags outbound notifications
// with the emitting host.
func NewNotifier(source string, log logger.Logger) *Notifier {
	return &Notifier{logger: log, source: source}
}

// SetPublishers replaces the outbound broker connections.
func (n *Notifier) SetPublishers(pubs []Publisher) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.publishers = pubs
}

// RegisterExceptionListener registers the external exception listener.
func (n *Notifier) RegisterExceptionListener(l ExceptionListener) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.listener = l
}

// OnInformation logs and publishes an informational notification.
func (n *Notifier) OnInformation(ctx context.Context, text string) {
	n.logger.Info().Msg(text)
	n.notify(ctx, models.SeverityInfo, text, ttlInfo)
}

// OnWarning logs and publishes a warning notification.
func (n *Notifier) OnWarning(ctx context.Context, text string) {
	n.logger.Warn().Msg(text)
	n.notify(ctx, models.SeverityWarning, text, ttlWarning)
}

// OnException logs and publishes an error notification, then invokes
// the registered exception listener, if any.
func (n *Notifier) OnException(ctx context.Context, text string, err error) {
	n.logger.Error().Err(err).Msg(text)

	msg := text
	if err != nil {
		msg = text + ": " + err.Error()
	}

	n.notify(ctx, models.SeverityError, msg, ttlError)

	n.mu.RLock()
	listener := n.listener
	n.mu.RUnlock()

	if listener != nil {
		listener.OnException(text, err)
	}
}

func (n *Notifier) notify(ctx context.Context, severity models.Severity, text string, ttl time.Duration) {
	n.mu.RLock()
	pubs := n.publishers
	n.mu.RUnlock()

	if len(pubs) == 0 {
		return
	}

	msg := &models.NotificationMessage{
		Text:      text,
		Severity:  severity,
		Source:    n.source,
		Timestamp: time.Now(),
	}

	for _, pub := range pubs {
		if err := pub.Publish(ctx, broker.SubjectNotifications, msg, ttl); err != nil {
			n.logger.Error().Err(err).
				Str("broker", pub.Addr()).
				Str("severity", string(severity)).
				Msg("Failed to publish notification")
		}
	}
}
