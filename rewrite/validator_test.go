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

func TestValidateZeroRootRejected(t *testing.T) {
	if err := Validate(Root{}, nil, nil, nil); err == nil {
		t.Fatal("expected an error validating a root with neither statement nor expression")
	}
}

func TestValidateStandaloneExpr(t *testing.T) {
	if err := ValidateStandaloneExpr(expr.Integer(1), nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateNilCTEBodyRejected(t *testing.T) {
	q := &expr.Query{With: []expr.CTE{{Table: "c", As: nil}}, Body: expr.Integer(1)}
	if err := ValidateStatement(q, nil, nil); err == nil {
		t.Fatal("expected an error for a CTE with a nil body")
	}
}

func TestValidateColumnBookCollision(t *testing.T) {
	book := NewColumnBook()
	seq := NewColumnSequence(0)
	bind1 := expr.Bind(expr.Integer(1), "a")
	bind2 := expr.Bind(expr.Integer(2), "b")
	id := book.Assign(&bind1, seq)
	book.ids[&bind2] = id

	if err := Validate(Root{Expr: expr.Integer(1)}, nil, nil, book); err == nil {
		t.Fatal("expected Validate to surface the column book collision")
	}
}
