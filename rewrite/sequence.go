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

import "sync/atomic"

// ColumnID identifies a column-definition site within a resolved tree. IDs
// are drawn from a ColumnSequence and are never reused.
type ColumnID uint64

// ColumnSequence hands out a monotonically increasing stream of ColumnIDs.
// It is safe for concurrent use (a single driver call only ever touches it
// from one goroutine, but the sequence can outlive the call if the caller
// supplied their own via Options.ColumnIDSequence, and the wider system may
// share a sequence across more than one in-flight analysis).
type ColumnSequence struct {
	next uint64
}

// NewColumnSequence returns a sequence whose first Next() call returns start+1.
func NewColumnSequence(start uint64) *ColumnSequence {
	return &ColumnSequence{next: start}
}

// Next draws and returns the next unique column id.
func (s *ColumnSequence) Next() ColumnID {
	return ColumnID(atomic.AddUint64(&s.next, 1))
}

// AdvancePast draws and discards ids until the drawn value is strictly
// greater than max, leaving the sequence positioned so that every
// subsequent Next() call returns an id greater than max.
func (s *ColumnSequence) AdvancePast(max ColumnID) {
	for s.Next() <= max {
	}
}

// Last returns the most recently drawn id without advancing the sequence.
func (s *ColumnSequence) Last() ColumnID {
	return ColumnID(atomic.LoadUint64(&s.next))
}
