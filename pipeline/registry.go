// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/camproc/internal/logging"
)

// Registry errors.
var (
	ErrNotFound          = errors.New("pipeline: not found")
	ErrDuplicateID       = errors.New("pipeline: duplicate id")
	ErrInvalidDefinition = errors.New("pipeline: invalid definition")
)

// Snapshot is an immutable view of the registry at one version.
type Snapshot struct {
	defs    []Definition
	index   map[ID]int
	version uint64
}

var emptySnapshot = &Snapshot{index: map[ID]int{}}

// Len returns the number of definitions.
func (s *Snapshot) Len() int { return len(s.defs) }

// At returns the i-th definition in display order.
func (s *Snapshot) At(i int) Definition { return s.defs[i] }

// Get returns the definition with the given id.
func (s *Snapshot) Get(id ID) (Definition, bool) {
	i, ok := s.index[id]
	if !ok {
		return Definition{}, false
	}
	return s.defs[i], true
}

// Contains reports whether id is present.
func (s *Snapshot) Contains(id ID) bool {
	_, ok := s.index[id]
	return ok
}

// IDs returns the ids in display order.
func (s *Snapshot) IDs() []ID {
	ids := make([]ID, len(s.defs))
	for i, d := range s.defs {
		ids[i] = d.ID
	}
	return ids
}

// List returns a copy of the definitions in display order.
func (s *Snapshot) List() []Definition { return slices.Clone(s.defs) }

// Version returns the registry version this snapshot was taken at.
func (s *Snapshot) Version() uint64 { return s.version }

// Registry is the ordered set of pipeline definitions.
//
// Edits come from the control goroutine and are serialized; every edit
// publishes a new Snapshot. Readers never block and always see a
// consistent set.
//
// Removing a pipeline does not touch any grid that references it.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(emptySnapshot)
	return r
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot { return r.snap.Load() }

// List returns the definitions in display order.
func (r *Registry) List() []Definition { return r.Snapshot().List() }

// Get returns the definition with the given id.
func (r *Registry) Get(id ID) (Definition, bool) { return r.Snapshot().Get(id) }

// Contains reports whether id is registered.
func (r *Registry) Contains(id ID) bool { return r.Snapshot().Contains(id) }

// Len returns the number of definitions.
func (r *Registry) Len() int { return r.Snapshot().Len() }

// Version returns a counter incremented by every successful edit.
func (r *Registry) Version() uint64 { return r.Snapshot().version }

// Add appends def and returns its id. A zero ID is replaced by a new
// random one. The name is NFC-normalised and trimmed; an empty name
// becomes "Pipeline N".
func (r *Registry) Add(def Definition) (ID, error) {
	if err := def.validate(); err != nil {
		return NilID, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if def.ID == NilID {
		def.ID = uuid.New()
	} else if cur.Contains(def.ID) {
		return NilID, fmt.Errorf("%w: %s", ErrDuplicateID, def.ID)
	}
	def.Name = normalizeName(def.Name, len(cur.defs)+1)

	defs := make([]Definition, len(cur.defs), len(cur.defs)+1)
	copy(defs, cur.defs)
	defs = append(defs, def)
	r.publish(cur, defs)

	logging.Logger().Debug("pipeline: added", "id", def.ID, "name", def.Name, "summary", def.Summary())
	return def.ID, nil
}

// Remove deletes the definition with the given id.
func (r *Registry) Remove(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	i, ok := cur.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	defs := slices.Delete(slices.Clone(cur.defs), i, i+1)
	r.publish(cur, defs)

	logging.Logger().Debug("pipeline: removed", "id", id)
	return nil
}

// Update applies mutate to a copy of the definition and stores the result.
// The ID cannot be changed. If the result is invalid, nothing changes.
func (r *Registry) Update(id ID, mutate func(*Definition)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	i, ok := cur.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	def := cur.defs[i]
	mutate(&def)
	def.ID = id
	if err := def.validate(); err != nil {
		return err
	}
	def.Name = normalizeName(def.Name, i+1)

	defs := slices.Clone(cur.defs)
	defs[i] = def
	r.publish(cur, defs)
	return nil
}

// Move changes the display position of a definition. The index is
// clamped to the valid range.
func (r *Registry) Move(id ID, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	i, ok := cur.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	index = min(max(index, 0), len(cur.defs)-1)
	if index == i {
		return nil
	}
	def := cur.defs[i]
	defs := slices.Delete(slices.Clone(cur.defs), i, i+1)
	defs = slices.Insert(defs, index, def)
	r.publish(cur, defs)
	return nil
}

// publish must be called with mu held.
func (r *Registry) publish(prev *Snapshot, defs []Definition) {
	index := make(map[ID]int, len(defs))
	for i, d := range defs {
		index[d.ID] = i
	}
	r.snap.Store(&Snapshot{defs: defs, index: index, version: prev.version + 1})
}

func normalizeName(name string, ordinal int) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return fmt.Sprintf("Pipeline %d", ordinal)
	}
	return name
}
