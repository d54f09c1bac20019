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

// Root is the resolved tree owned by an Output: exactly one of Stmt and Expr
// is non-nil. It is passed between rewriters as an exclusively-owned value;
// no rewriter may retain a reference to it past return.
type Root struct {
	Stmt *expr.Query
	Expr expr.Node
}

// IsZero reports whether neither a statement nor an expression is present.
func (r Root) IsZero() bool {
	return r.Stmt == nil && r.Expr == nil
}

// Valid reports whether exactly one of Stmt or Expr is present, as required
// by the Output invariant.
func (r Root) Valid() bool {
	return (r.Stmt == nil) != (r.Expr == nil)
}

// node returns a single representative expr.Node for the root, used by
// operations that only need *a* node to recurse from (such as the legacy
// fields-accessed sweep). It does not visit CTE bodies; use walk for that.
func (r Root) node() expr.Node {
	if r.Stmt != nil {
		return r.Stmt.Body
	}
	return r.Expr
}

// walk visits every expr.Node reachable from r, including CTE bodies, with
// the given visitor. It never mutates the tree.
func (r Root) walk(v expr.Visitor) {
	if r.Stmt != nil {
		for i := range r.Stmt.With {
			expr.Walk(v, r.Stmt.With[i].As)
		}
		expr.Walk(v, r.Stmt.Body)
		return
	}
	expr.Walk(v, r.Expr)
}

// rewrite applies r to every expr.Node reachable from root and returns the
// new Root. Like walk, it covers CTE bodies.
func rewriteRoot(rw expr.Rewriter, root Root) Root {
	if root.Stmt != nil {
		q := &expr.Query{Body: expr.Rewrite(rw, root.Stmt.Body)}
		if len(root.Stmt.With) > 0 {
			q.With = make([]expr.CTE, len(root.Stmt.With))
			for i := range root.Stmt.With {
				cte := root.Stmt.With[i]
				cte.As = expr.Rewrite(rw, cte.As).(*expr.Select)
				q.With[i] = cte
			}
		}
		return Root{Stmt: q}
	}
	return Root{Expr: expr.Rewrite(rw, root.Expr)}
}

// funcRewriter adapts a plain per-node function into an expr.Rewriter that
// visits every node in depth-first (post) order, matching the post_visit
// style rewriters are expected to use.
type funcRewriter func(expr.Node) expr.Node

func (f funcRewriter) Rewrite(n expr.Node) expr.Node { return f(n) }
func (f funcRewriter) Walk(expr.Node) expr.Rewriter  { return f }
