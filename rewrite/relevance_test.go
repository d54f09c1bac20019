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

func TestFindRelevantRulesEmpty(t *testing.T) {
	got := FindRelevantRules(Root{Expr: expr.Integer(1)})
	if len(got) != 0 {
		t.Fatalf("expected no relevant rules, got %v", got)
	}
}

func TestFindRelevantRulesNested(t *testing.T) {
	x := expr.Ident("x")
	tree := expr.Call(expr.Anonymize, expr.Call(expr.NullIfError, x))
	got := FindRelevantRules(Root{Expr: tree})
	if !got.Has(RuleNullIfError) || !got.Has(RuleAnonymization) {
		t.Fatalf("expected both rules detected, got %v", got)
	}
}

func TestFindRelevantRulesCTE(t *testing.T) {
	q := &expr.Query{
		With: []expr.CTE{{Table: "c", As: &expr.Select{
			Columns: []expr.Binding{expr.Bind(expr.Call(expr.NullIfError, expr.Ident("y")), "y")},
		}}},
		Body: expr.Integer(1),
	}
	got := FindRelevantRules(Root{Stmt: q})
	if !got.Has(RuleNullIfError) {
		t.Fatalf("expected CTE body to be scanned, got %v", got)
	}
}

func TestFindRelevantRulesDoesNotMutate(t *testing.T) {
	x := expr.Ident("x")
	call := expr.Call(expr.NullIfError, x)
	before := expr.ToString(call)
	FindRelevantRules(Root{Expr: call})
	if expr.ToString(call) != before {
		t.Fatal("FindRelevantRules must never mutate the tree")
	}
}
