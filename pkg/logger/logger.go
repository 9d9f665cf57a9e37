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

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// DefaultConfig returns the stdout/info defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Output: "stdout",
	}
}

// impl implements the Logger interface without global state.
type impl struct {
	logger zerolog.Logger
}

// New creates a logger from the provided configuration. A nil config
// uses the defaults.
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	timeFormat := time.RFC3339
	if config.TimeFormat != "" {
		timeFormat = config.TimeFormat
	}

	zerolog.TimeFieldFormat = timeFormat

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &impl{logger: zlog}, nil
}

// NewComponent creates a logger pre-tagged with a component field.
func NewComponent(component string, config *Config) (Logger, error) {
	base, err := New(config)
	if err != nil {
		return nil, err
	}

	l := base.(*impl)

	return &impl{logger: l.logger.With().Str("component", component).Logger()}, nil
}

func (l *impl) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *impl) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *impl) Info() *zerolog.Event  { return l.logger.Info() }
func (l *impl) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *impl) Error() *zerolog.Event { return l.logger.Error() }
func (l *impl) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *impl) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *impl) With() zerolog.Context { return l.logger.With() }

func (l *impl) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *impl) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *impl) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}
