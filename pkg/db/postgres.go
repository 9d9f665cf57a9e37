/*
 * Copyright 2025 PlantOps, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/models"
)

const defaultPostgresPort = 5432

// PostgresConfig describes the collector database connection.
type PostgresConfig struct {
	Host            string          `json:"host"`
	Port            int             `json:"port,omitempty"`
	Database        string          `json:"database"`
	Username        string          `json:"username,omitempty"`
	Password        string          `json:"password,omitempty"`
	SSLMode         string          `json:"ssl_mode,omitempty"`
	MaxConnections  int32           `json:"max_connections,omitempty"`
	MaxConnLifetime models.Duration `json:"max_conn_lifetime,omitempty"`
}

// Postgres implements Service over a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgres dials the configured database and returns the service.
func NewPostgres(ctx context.Context, cfg *PostgresConfig, log logger.Logger) (*Postgres, error) {
	pg := *cfg
	if pg.Port == 0 {
		pg.Port = defaultPostgresPort
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", pg.Host, pg.Port),
		Path:   "/" + pg.Database,
	}

	if pg.Username != "" {
		if pg.Password != "" {
			connURL.User = url.UserPassword(pg.Username, pg.Password)
		} else {
			connURL.User = url.User(pg.Username)
		}
	}

	query := connURL.Query()

	sslMode := pg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)
	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if pg.MaxConnections > 0 {
		poolConfig.MaxConns = pg.MaxConnections
	}

	if pg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(pg.MaxConnLifetime)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, logger: log}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// CollectorsByHost implements Service.
func (p *Postgres) CollectorsByHost(ctx context.Context, hosts []string) ([]*models.Collector, error) {
	const q = `
		SELECT id, name, host, state, broker_host, broker_port, broker_user, broker_password, notify_to
		FROM collectors
		WHERE host = ANY($1)`

	rows, err := p.pool.Query(ctx, q, hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to query collectors: %w", err)
	}
	defer rows.Close()

	var collectors []*models.Collector

	for rows.Next() {
		c := &models.Collector{}

		var (
			brokerHost, brokerUser, brokerPass, notifyTo *string
			brokerPort                                   *int
		)

		err := rows.Scan(&c.ID, &c.Name, &c.Host, &c.State,
			&brokerHost, &brokerPort, &brokerUser, &brokerPass, &notifyTo)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collector: %w", err)
		}

		if notifyTo != nil {
			c.NotifyTo = *notifyTo
		}

		// Broker columns are nullable; a collector without one only
		// records events locally.
		if brokerHost != nil && *brokerHost != "" {
			c.Broker = &models.BrokerConfig{Family: models.BrokerNATS, Host: *brokerHost}

			if brokerPort != nil {
				c.Broker.Port = *brokerPort
			}

			if brokerUser != nil {
				c.Broker.Username = *brokerUser
			}

			if brokerPass != nil {
				c.Broker.Password = *brokerPass
			}
		}

		collectors = append(collectors, c)
	}

	return collectors, rows.Err()
}

// ResolversByHostAndState implements Service.
func (p *Postgres) ResolversByHostAndState(
	ctx context.Context, hosts []string, states []models.CollectorState) ([]*models.Resolver, error) {
	const q = `
		SELECT r.id, r.source_id, r.type, r.update_period_ms, r.watch_mode, r.transform,
		       c.name,
		       e.id, e.name, e.retention_ms,
		       s.id, s.name, s.type, s.host, s.port, s.username, s.password, s.endpoint, s.server_id, s.params
		FROM resolvers r
		JOIN collectors c ON c.id = r.collector_id
		JOIN equipment e ON e.id = r.equipment_id
		JOIN data_sources s ON s.id = r.source_ref
		WHERE c.host = ANY($1) AND c.state = ANY($2)`

	stateNames := make([]string, 0, len(states))
	for _, s := range states {
		stateNames = append(stateNames, string(s))
	}

	rows, err := p.pool.Query(ctx, q, hosts, stateNames)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolvers: %w", err)
	}
	defer rows.Close()

	var resolvers []*models.Resolver

	for rows.Next() {
		r := &models.Resolver{
			Equipment: &models.Equipment{},
			Source:    &models.DataSource{},
		}

		var (
			periodMS    int64
			retentionMS *int64
		)

		err := rows.Scan(
			&r.ID, &r.SourceID, &r.Type, &periodMS, &r.WatchMode, &r.Transform,
			&r.Collector,
			&r.Equipment.ID, &r.Equipment.Name, &retentionMS,
			&r.Source.ID, &r.Source.Name, &r.Source.Type, &r.Source.Host, &r.Source.Port,
			&r.Source.Username, &r.Source.Password, &r.Source.Endpoint, &r.Source.ServerID, &r.Source.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolver: %w", err)
		}

		r.UpdatePeriod = models.Duration(time.Duration(periodMS) * time.Millisecond)

		if retentionMS != nil {
			retention := models.Duration(time.Duration(*retentionMS) * time.Millisecond)
			r.Equipment.Retention = &retention
		}

		resolvers = append(resolvers, r)
	}

	return resolvers, rows.Err()
}

// LastOpenEvent implements Service.
func (p *Postgres) LastOpenEvent(
	ctx context.Context, equipment string, eventType models.EventType) (*models.Event, error) {
	const q = `
		SELECT id, equipment, type, start_at, reason, material, job, quantity, uom, shift
		FROM events
		WHERE equipment = $1 AND type = $2 AND end_at IS NULL
		ORDER BY start_at DESC
		LIMIT 1`

	e := &models.Event{Equipment: &models.Equipment{}}

	err := p.pool.QueryRow(ctx, q, equipment, string(eventType)).Scan(
		&e.ID, &e.Equipment.Name, &e.Type, &e.Start,
		&e.Reason, &e.Material, &e.Job, &e.Quantity, &e.UOM, &e.Shift)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to query last open event: %w", err)
	}

	return e, nil
}

// SaveEvents implements Service. All events are written in one
// transaction so a closed predecessor and its successor commit
// together.
func (p *Postgres) SaveEvents(ctx context.Context, events ...*models.Event) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
		INSERT INTO events (id, equipment, type, start_at, end_at, duration_ms,
		                    reason, material, job, quantity, uom, shift)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET end_at = EXCLUDED.end_at, duration_ms = EXCLUDED.duration_ms`

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}

		var durationMS *int64

		if e.Duration != nil {
			ms := time.Duration(*e.Duration).Milliseconds()
			durationMS = &ms
		}

		equipment := ""
		if e.Equipment != nil {
			equipment = e.Equipment.Name
		}

		_, err = tx.Exec(ctx, q,
			e.ID, equipment, string(e.Type), e.Start, e.End, durationMS,
			e.Reason, e.Material, e.Job, e.Quantity, e.UOM, e.Shift)
		if err != nil {
			return fmt.Errorf("failed to save event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}

	return nil
}

// PurgeEvents implements Service. Open events are never purged: an
// event without an end time is still waiting for its successor to
// close it, however old it is.
func (p *Postgres) PurgeEvents(ctx context.Context, equipment string, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM events WHERE equipment = $1 AND start_at < $2 AND end_at IS NOT NULL`

	tag, err := p.pool.Exec(ctx, q, equipment, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}

	return tag.RowsAffected(), nil
}

// SaveCollectorState implements Service.
func (p *Postgres) SaveCollectorState(ctx context.Context, collector *models.Collector) error {
	const q = `UPDATE collectors SET state = $2 WHERE id = $1`

	_, err := p.pool.Exec(ctx, q, collector.ID, string(collector.State))
	if err != nil {
		return fmt.Errorf("failed to save collector state: %w", err)
	}

	return nil
}
