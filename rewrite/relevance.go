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
	"github.com/SnellerInc/sneller/expr"
)

// relevanceVisitor records which built-in rules have a pattern present
// somewhere in the tree. It never mutates the nodes it visits.
type relevanceVisitor struct {
	found RuleSet
}

// testTrigger lets package tests register an additional, synthetic
// relevance pattern without growing the closed set of built-in RuleIDs
// (see rule.go). It is nil outside of tests, e.g. to exercise the
// convergence loop's iteration bound with a rule that never converges.
var testTrigger func(*expr.Builtin) (RuleID, bool)

func (v *relevanceVisitor) Visit(n expr.Node) expr.Visitor {
	if n == nil {
		return nil
	}
	if b, ok := n.(*expr.Builtin); ok {
		switch b.Func {
		case expr.NullIfError:
			v.found.Add(RuleNullIfError)
		case expr.Anonymize:
			v.found.Add(RuleAnonymization)
		}
		if testTrigger != nil {
			if id, ok := testTrigger(b); ok {
				v.found.Add(id)
			}
		}
	}
	return v
}

// FindRelevantRules walks root and returns the set of built-in rule ids
// whose trigger pattern appears anywhere in the tree. It is a pure, O(n)
// function of the tree size: it never mutates nodes and never consults the
// catalog or type factory.
//
// This must stay consistent with whatever the resolver populates into
// OutputProperties.RelevantRewrites when it first produces a tree; Run
// cross-checks the two in debug mode (see driver.go).
func FindRelevantRules(root Root) RuleSet {
	v := &relevanceVisitor{found: make(RuleSet)}
	root.walk(v)
	return v.found
}
