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
	"encoding/binary"
	"fmt"

	"github.com/dchest/siphash"

	"github.com/SnellerInc/sneller/expr"
)

// anonymizeK0, anonymizeK1 key the siphash used to derive a deterministic
// per-column noise offset for ANONYMIZE. Determinism (rather than a random
// key per process) keeps the driver's ordering-determinism testable
// property intact: two runs over the same tree produce the same offsets.
const anonymizeK0, anonymizeK1 = 0x736e656c6c657200, 0x616e6f6e796d697a

func init() {
	register(RuleNullIfError, nullIfErrorRewriter{})
	register(RuleAnonymization, anonymizationRewriter{})
}

// nullIfErrorRewriter rewrites NULLIFERROR(x) into IFERROR(x, CAST(NULL AS
// <type-of-x>)). NULLIFERROR is sugar the planner never evaluates directly
// (see expr.NullIfError); only IFERROR has an implementation in the
// expression evaluator, so this rule must fire before the tree can be
// evaluated at all.
type nullIfErrorRewriter struct{}

func (nullIfErrorRewriter) Name() string { return RuleNullIfError.String() }

func (nullIfErrorRewriter) Rewrite(opts *Options, input Root, catalog Catalog, types TypeFactory, props *OutputProperties) (Root, error) {
	var rerr error
	rw := funcRewriter(func(n expr.Node) expr.Node {
		if rerr != nil {
			return n
		}
		b, ok := n.(*expr.Builtin)
		if !ok || b.Func != expr.NullIfError {
			return n
		}
		if len(b.Hints) > 0 {
			rerr = fmt.Errorf("rewrite: %s: hints on NULLIFERROR are not implemented (%v)", RuleNullIfError, b.Hints)
			return n
		}
		x := b.Args[0]
		ts := expr.TypeOf(x, types)
		return expr.Call(expr.IfError, x, &expr.Cast{From: expr.Null{}, To: ts})
	})
	out := rewriteRoot(rw, input)
	if rerr != nil {
		return Root{}, rerr
	}
	return out, nil
}

// anonymizationRewriter rewrites ANONYMIZE(x) into ANONYMIZE(x + noise),
// where noise is a siphash-derived offset keyed on the column id assigned
// to this call site. The outer ANONYMIZE tag survives the rewrite, so the
// relevance scanner cannot tell the output apart from a not-yet-rewritten
// input; the driver compensates by unconditionally removing
// RuleAnonymization from the apply set after the sweep it fires in (see
// driver.go), so this rewriter never needs to guard against re-firing on
// its own output.
type anonymizationRewriter struct{}

func (anonymizationRewriter) Name() string { return RuleAnonymization.String() }

func (anonymizationRewriter) Rewrite(opts *Options, input Root, catalog Catalog, types TypeFactory, props *OutputProperties) (Root, error) {
	fired := 0
	rw := funcRewriter(func(n expr.Node) expr.Node {
		b, ok := n.(*expr.Builtin)
		if !ok || b.Func != expr.Anonymize {
			return n
		}
		// Each anonymized call site is itself a new column-definition site:
		// register it with the output's uniqueness ledger the same way any
		// other synthesized binding would be, so Validate can catch a
		// colliding id.
		site := expr.Bind(b, "_anonymized")
		id := opts.Columns.Assign(&site, opts.ColumnIDSequence)
		fired++
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		noise := int64(siphash.Hash(anonymizeK0, anonymizeK1, buf[:]) % 1000)
		return expr.Call(expr.Anonymize, expr.Add(b.Args[0], expr.Integer(noise)))
	})
	out := rewriteRoot(rw, input)
	if fired > 0 {
		props.Set("anonymization.fired", fired)
	}
	return out, nil
}
