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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var errNoEnvConfig = errors.New("no configuration found in environment")

// EnvLoader loads a complete JSON configuration document from the
// <prefix>CONFIG_JSON environment variable. Container deployments use
// this to avoid mounting a config file.
type EnvLoader struct {
	prefix string
}

// Load implements Loader by reading from the environment.
func (e *EnvLoader) Load(_ context.Context, _ string, dst interface{}) error {
	jsonConfig := os.Getenv(e.prefix + "CONFIG_JSON")
	if jsonConfig == "" {
		return fmt.Errorf("%w: %sCONFIG_JSON is empty", errNoEnvConfig, e.prefix)
	}

	if err := json.Unmarshal([]byte(jsonConfig), dst); err != nil {
		return fmt.Errorf("failed to unmarshal %sCONFIG_JSON: %w", e.prefix, err)
	}

	return nil
}
