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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/plantops/shopfloor/pkg/collector"
	"github.com/plantops/shopfloor/pkg/config"
	"github.com/plantops/shopfloor/pkg/db"
	"github.com/plantops/shopfloor/pkg/lifecycle"
	"github.com/plantops/shopfloor/pkg/logger"
	"github.com/plantops/shopfloor/pkg/protocol"
	"github.com/plantops/shopfloor/pkg/protocol/httpin"
	"github.com/plantops/shopfloor/pkg/protocol/mq"
	"github.com/plantops/shopfloor/pkg/protocol/snmp"
	"github.com/plantops/shopfloor/pkg/resolution"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/shopfloor/collector.json", "Path to collector config file")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig()

	var cfg collector.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "info",
			Output: "stdout",
		}
	}

	collectorLogger, err := lifecycle.CreateComponentLogger("collector", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := db.NewPostgres(ctx, cfg.Database, collectorLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	registry := protocol.NewRegistry()
	registry.Register(snmp.NewAdapter(collectorLogger))
	registry.Register(httpin.NewAdapter(collectorLogger))
	registry.Register(mq.NewAdapter(collectorLogger))

	engine, err := collector.New(&cfg, store, resolution.NewPassthrough(), registry, collectorLogger)
	if err != nil {
		return err
	}

	return lifecycle.Run(ctx, engine, collectorLogger)
}
