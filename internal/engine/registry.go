// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateModel is returned by Register when a model with the same name
// is already registered.
var ErrDuplicateModel = errors.New("model already registered")

// Registry holds the live models by name. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model)}
}

// Register adds a model under its own name.
func (r *Registry) Register(m Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.models[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, name)
	}
	r.models[name] = m
	return nil
}

// Get returns the model registered under name.
func (r *Registry) Get(name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered model and empties the registry. Errors are
// joined so one failing model does not skip the rest.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, m := range r.models {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close model %s: %w", name, err))
		}
	}
	r.models = make(map[string]Model)
	return errors.Join(errs...)
}
