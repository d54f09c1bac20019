// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package rewrite

import (
	"fmt"
	"sync"
)

// IDPool interns identifier strings so that repeated column and table names
// produced across rewriter sub-analyses share storage, mirroring the
// analyzer's id-string pool.
type IDPool struct {
	mu       sync.Mutex
	interned map[string]string
}

// NewIDPool returns an empty pool.
func NewIDPool() *IDPool {
	return &IDPool{interned: make(map[string]string)}
}

// Intern returns a canonical copy of s; repeated calls with an
// equal string return the same underlying value.
func (p *IDPool) Intern(s string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.interned[s]; ok {
		return v
	}
	p.interned[s] = s
	return s
}

// Arena is a placeholder for the bump-allocated value storage that backs
// constant nodes synthesized during rewriting. Sneller's expr.Node values
// are ordinary garbage-collected Go values, so Arena does not need to do
// real bump allocation; it exists so that Options can carry an arena
// handle the way the data model requires, and so that a future allocator
// swap does not need to change any rewriter signatures.
type Arena struct {
	mu     sync.Mutex
	owned  []any
	closed bool
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Own records v as belonging to the arena. It does not change v's lifetime
// (the Go garbage collector still owns it), but lets Validate assert that
// every synthesized value passed through an arena the caller controls.
func (a *Arena) Own(v any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owned = append(a.owned, v)
}

// OutputProperties is a mutable bag written by rewriters (to record
// rewrite-specific metadata) and by the driver itself (to record the
// resolver- and scanner-detected relevance sets).
type OutputProperties struct {
	// RelevantRewrites is the relevance set the resolver attached when it
	// produced the tree, before any rewriting took place. It is consulted
	// on the first pass and re-derived by FindRelevantRules thereafter.
	RelevantRewrites RuleSet

	extra map[string]any
}

// Set stores an arbitrary rewriter-specific value under key.
func (p *OutputProperties) Set(key string, v any) {
	if p.extra == nil {
		p.extra = make(map[string]any)
	}
	p.extra[key] = v
}

// Get retrieves a value previously stored with Set.
func (p *OutputProperties) Get(key string) (any, bool) {
	v, ok := p.extra[key]
	return v, ok
}

// Output is the analyzer's output record: it owns the resolved tree along
// with the bookkeeping the driver needs to rewrite it in place.
type Output struct {
	root        Root
	IDPool      *IDPool
	Arena       *Arena
	MaxColumnID ColumnID
	Columns     *ColumnBook
	Properties  OutputProperties
	Runtime     RuntimeInfo
}

// NewOutput wraps root as a freshly analyzed output with its own id pool,
// arena, and column book.
func NewOutput(root Root, maxColumnID ColumnID) *Output {
	return &Output{
		root:        root,
		IDPool:      NewIDPool(),
		Arena:       NewArena(),
		MaxColumnID: maxColumnID,
		Columns:     NewColumnBook(),
	}
}

// Mutator is the only type permitted to mutate an Output. It is
// intentionally narrow: releasing the root transfers exclusive ownership to
// the caller, and Update is the only way to install a new root.
type Mutator struct {
	out *Output
}

// NewMutator wraps out for the duration of a single driver call.
func NewMutator(out *Output) *Mutator {
	return &Mutator{out: out}
}

// ReleaseRoot transfers ownership of the current root out of the Output,
// leaving it zeroed. The caller is responsible for eventually reinstalling
// a root (possibly the same one) via Update.
func (m *Mutator) ReleaseRoot() Root {
	r := m.out.root
	m.out.root = Root{}
	return r
}

// MutableRuntimeInfo returns the output's runtime-info bag for the driver
// to record timings and invocation counts into.
func (m *Mutator) MutableRuntimeInfo() *RuntimeInfo {
	return &m.out.Runtime
}

// MutableOutputProperties returns the output's properties bag.
func (m *Mutator) MutableOutputProperties() *OutputProperties {
	return &m.out.Properties
}

// Update re-installs newRoot as the output's root and advances the recorded
// max column id. It fails if newRoot does not satisfy the statement-XOR-
// expression invariant.
func (m *Mutator) Update(newRoot Root, newMaxColumnID ColumnID) error {
	if !newRoot.Valid() {
		return fmt.Errorf("rewrite: invariant violation: output root must have exactly one of statement or expression, got %+v", newRoot)
	}
	m.out.root = newRoot
	m.out.MaxColumnID = newMaxColumnID
	return nil
}

// Root returns the output's current root.
func (o *Output) Root() Root {
	return o.root
}
