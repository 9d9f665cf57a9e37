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

import "errors"

var (
	// ErrConfiguration marks a dispatch for a source identifier with
	// no registered resolver. Reported and dropped, never fatal.
	ErrConfiguration = errors.New("no resolver registered for source identifier")

	// ErrResolution marks a transformation failure on a given input.
	// Handled like ErrConfiguration.
	ErrResolution = errors.New("resolution failed")

	// ErrValidation marks a resolved event whose declared duration
	// exceeds its elapsed time. Rejected before persistence.
	ErrValidation = errors.New("event duration exceeds elapsed time")

	errDuplicateSourceID = errors.New("source identifier already registered")
	errNotRunning        = errors.New("collector engine is not running")
	errAlreadyRunning    = errors.New("collector engine is already running")
	errNoSuchSource      = errors.New("no active connection for data source")
)
