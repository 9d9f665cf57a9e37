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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name  string `json:"name"`
	Port  int    `json:"port"`
	valid bool
}

var errInvalidTestConfig = errors.New("invalid test config")

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errInvalidTestConfig
	}

	c.valid = true

	return nil
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidate_FromFile(t *testing.T) {
	path := writeConfigFile(t, `{"name": "collector", "port": 9090}`)

	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), path, &cfg)
	require.NoError(t, err)

	assert.Equal(t, "collector", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.valid)
}

func TestLoadAndValidate_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `{"name": "collector"}`)

	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errInvalidTestConfig)
}

func TestLoadAndValidate_MalformedFile(t *testing.T) {
	path := writeConfigFile(t, `{"name": "collector",`)

	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), path, &cfg)
	require.Error(t, err)
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), "/does/not/exist.json", &cfg)
	require.Error(t, err)
}

func TestLoadAndValidate_FromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("SHOPFLOOR_CONFIG_JSON", `{"name": "env-collector", "port": 8080}`)

	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), "", &cfg)
	require.NoError(t, err)

	assert.Equal(t, "env-collector", cfg.Name)
}

func TestLoadAndValidate_EnvMissingDocument(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("SHOPFLOOR_CONFIG_JSON", "")

	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errNoEnvConfig)
}

func TestLoadAndValidate_CustomEnvPrefix(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "PLANT_")
	t.Setenv("PLANT_CONFIG_JSON", `{"name": "prefixed", "port": 1}`)

	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), "", &cfg)
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Name)
}

func TestLoadAndValidate_UnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg testConfig

	err := NewConfig().LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}
