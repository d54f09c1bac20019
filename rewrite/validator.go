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

	"github.com/SnellerInc/sneller/expr"
)

// Validate checks the structural invariants of a resolved tree after
// rewriting has converged: every node must be internally well-typed
// (expr.CheckHint), and every column-definition site synthesized during
// rewriting must have a unique id. allowed is consulted for hints and
// options the validator is permitted to see attached to nodes; it is
// otherwise unused by this implementation, which does not yet model a
// hint/option allow-list at the node level.
func Validate(root Root, types TypeFactory, allowed *HintsAndOptions, book *ColumnBook) error {
	if !root.Valid() {
		return invariantf("", "validator invoked with neither statement nor expression present")
	}
	if err := validateNode(root, types); err != nil {
		return err
	}
	if book != nil {
		if err := book.validateUnique(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStatement validates a statement-shaped root (root.Stmt != nil).
func ValidateStatement(q *expr.Query, types TypeFactory, allowed *HintsAndOptions) error {
	return validateNode(Root{Stmt: q}, types)
}

// ValidateStandaloneExpr validates an expression-shaped root (root.Expr != nil).
func ValidateStandaloneExpr(e expr.Node, types TypeFactory, allowed *HintsAndOptions) error {
	return validateNode(Root{Expr: e}, types)
}

func validateNode(root Root, types TypeFactory) error {
	if types == nil {
		types = expr.HintFn(expr.NoHint)
	}
	if root.Stmt != nil {
		for i := range root.Stmt.With {
			if root.Stmt.With[i].As == nil {
				return invariantf("validator", "CTE %q has a nil body", root.Stmt.With[i].Table)
			}
			if err := expr.CheckHint(root.Stmt.With[i].As, types); err != nil {
				return fmt.Errorf("rewrite: invalid CTE %q: %w", root.Stmt.With[i].Table, err)
			}
		}
		if root.Stmt.Body == nil {
			return invariantf("validator", "statement has a nil body")
		}
		if err := expr.CheckHint(root.Stmt.Body, types); err != nil {
			return fmt.Errorf("rewrite: invalid statement: %w", err)
		}
		return nil
	}
	if err := expr.CheckHint(root.Expr, types); err != nil {
		return fmt.Errorf("rewrite: invalid expression: %w", err)
	}
	return nil
}
