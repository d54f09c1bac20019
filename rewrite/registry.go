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

import "golang.org/x/exp/slices"

// Rewriter is a single tree-to-tree transformation. Implementations must:
//   - treat input as consumed: they must not retain it, and the returned
//     Root supersedes it entirely;
//   - return a non-zero Root on success;
//   - draw any new column ids from opts.ColumnIDSequence;
//   - not retain a reference to opts, input, catalog, types, or props past
//     return.
type Rewriter interface {
	// Name is a human-readable identifier used in diagnostics.
	Name() string
	// Rewrite consumes input and produces a replacement tree.
	Rewrite(opts *Options, input Root, catalog Catalog, types TypeFactory, props *OutputProperties) (Root, error)
}

// registryEntry pairs a built-in rule identifier with its implementation.
type registryEntry struct {
	id RuleID
	rw Rewriter
}

// registry is the process-wide, append-only table of built-in rewriters.
// Entries are added by register, normally from package-level init() calls
// in builtins.go, before any call to Run. Once program startup has
// finished, the registry is treated as read-only and requires no locking.
var registry []registryEntry

// register adds a built-in rewriter to the global registry. It must only be
// called from init().
func register(id RuleID, rw Rewriter) {
	if slices.ContainsFunc(registry, func(e registryEntry) bool { return e.id == id }) {
		panic("rewrite: rule " + id.String() + " registered twice")
	}
	registry = append(registry, registryEntry{id: id, rw: rw})
}

// Get looks up the rewriter registered for id. The second return value is
// false if no such rule is registered.
func Get(id RuleID) (Rewriter, bool) {
	i := slices.IndexFunc(registry, func(e registryEntry) bool { return e.id == id })
	if i < 0 {
		return nil, false
	}
	return registry[i].rw, true
}

// RegistrationOrder returns the rule ids in the order they were registered.
// The driver uses this order as the within-sweep application order, giving
// deterministic, globally-configured rule precedence.
func RegistrationOrder() []RuleID {
	ids := make([]RuleID, len(registry))
	for i, e := range registry {
		ids[i] = e.id
	}
	return ids
}

// ApplicableOrder returns RegistrationOrder filtered down to the members of
// enabled, preserving registration order. The driver calls this once per
// sweep against that sweep's relevance-intersected rule set.
func ApplicableOrder(enabled RuleSet) []RuleID {
	order := RegistrationOrder()
	return slices.DeleteFunc(order, func(id RuleID) bool { return !enabled.Has(id) })
}
