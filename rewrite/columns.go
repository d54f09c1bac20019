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

	"github.com/SnellerInc/sneller/expr"
)

// ColumnBook records the column id assigned to each column-definition site
// (an *expr.Binding) synthesized while rewriting. Column ids for bindings
// that were already present before rewriting began are not tracked here:
// they were assigned by the (out-of-scope) name resolver, and the driver
// only needs to know the high-water mark, which Output.MaxColumnID carries.
type ColumnBook struct {
	mu  sync.Mutex
	ids map[*expr.Binding]ColumnID
}

// NewColumnBook returns an empty book.
func NewColumnBook() *ColumnBook {
	return &ColumnBook{ids: make(map[*expr.Binding]ColumnID)}
}

// Assign draws the next id from seq, records it against bind, and returns
// it. Rewriters that synthesize a new named binding should call this rather
// than drawing from the sequence directly, so that the uniqueness invariant
// can be checked later by Validate.
func (b *ColumnBook) Assign(bind *expr.Binding, seq *ColumnSequence) ColumnID {
	id := seq.Next()
	b.mu.Lock()
	b.ids[bind] = id
	b.mu.Unlock()
	return id
}

// IDOf returns the id previously assigned to bind, if any.
func (b *ColumnBook) IDOf(bind *expr.Binding) (ColumnID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.ids[bind]
	return id, ok
}

// validateUnique checks that no two distinct bindings share a column id.
func (b *ColumnBook) validateUnique() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[ColumnID]*expr.Binding, len(b.ids))
	for bind, id := range b.ids {
		if prev, ok := seen[id]; ok && prev != bind {
			return fmt.Errorf("rewrite: column id %d assigned to more than one binding", id)
		}
		seen[id] = bind
	}
	return nil
}
