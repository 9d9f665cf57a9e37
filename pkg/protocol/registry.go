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

package protocol

import (
	"errors"
	"fmt"
	"sync"

	"github.com/plantops/shopfloor/pkg/models"
)

var errUnknownFamily = errors.New("no adapter registered for protocol family")

// Registry maps protocol families to their adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.SourceType]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.SourceType]Adapter)}
}

// Register adds an adapter for its family, replacing any previous one.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[a.Family()] = a
}

// Lookup returns the adapter for a family.
func (r *Registry) Lookup(family models.SourceType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownFamily, family)
	}

	return a, nil
}

// Families returns the registered protocol families.
func (r *Registry) Families() []models.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	families := make([]models.SourceType, 0, len(r.adapters))
	for f := range r.adapters {
		families = append(families, f)
	}

	return families
}
