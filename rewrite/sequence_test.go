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
	"testing"

	"github.com/SnellerInc/sneller/expr"
)

func TestColumnSequenceMonotonic(t *testing.T) {
	s := NewColumnSequence(0)
	prev := ColumnID(0)
	for i := 0; i < 10; i++ {
		id := s.Next()
		if id <= prev {
			t.Fatalf("sequence not monotonic: %d after %d", id, prev)
		}
		prev = id
	}
	if s.Last() != prev {
		t.Fatalf("Last() = %d, want %d", s.Last(), prev)
	}
}

func TestColumnSequenceAdvancePast(t *testing.T) {
	s := NewColumnSequence(0)
	s.AdvancePast(100)
	if s.Last() <= 100 {
		t.Fatalf("expected sequence to be positioned past 100, got %d", s.Last())
	}
	next := s.Next()
	if next <= 100 {
		t.Fatalf("expected next id to exceed 100, got %d", next)
	}
}

func TestColumnBookUniqueness(t *testing.T) {
	book := NewColumnBook()
	seq := NewColumnSequence(0)
	bind1 := expr.Bind(expr.Integer(1), "a")
	bind2 := expr.Bind(expr.Integer(2), "b")
	b1, b2 := &bind1, &bind2

	id1 := book.Assign(b1, seq)
	id2 := book.Assign(b2, seq)
	if id1 == id2 {
		t.Fatal("distinct bindings must not share a column id")
	}
	if err := book.validateUnique(); err != nil {
		t.Fatalf("validateUnique: %v", err)
	}

	// force a collision directly to ensure validateUnique catches it
	book.ids[b2] = id1
	if err := book.validateUnique(); err == nil {
		t.Fatal("expected validateUnique to reject a shared column id")
	}
}
