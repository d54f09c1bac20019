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
	"time"

	"github.com/SnellerInc/sneller/expr"
)

// MaxIterations bounds the number of convergence-loop sweeps a single Run
// call will perform before giving up with a ResourceExhaustedError. It
// exists as a package variable (rather than a true constant) only so tests
// can shrink it; production callers should not change it.
var MaxIterations = 25

// Run drives base's resolved tree to a fixed point: it applies any leading
// rewriters, then repeatedly sweeps the registry's built-in rewriters (in
// registration order) until no enabled rule's trigger pattern remains, then
// applies any trailing rewriters, validates the result if requested, and
// installs it back into out.
//
// Run never leaves out partially updated: on any error the original root
// stays in place.
func Run(base *Options, sql string, catalog Catalog, types TypeFactory, out *Output) (err error) {
	if base.PreRewriteCallback != nil {
		if err := base.PreRewriteCallback(out); err != nil {
			return convertErrorLocation(base.ErrorMessageMode, base.AttachErrorLocationPayload, sql, err)
		}
	}
	noBuiltins := len(base.EnabledRules) == 0 && len(base.LeadingRewriters) == 0 && len(base.TrailingRewriters) == 0
	if noBuiltins || out.Root().IsZero() {
		return nil
	}

	start := time.Now()
	defer func() {
		out.Runtime.RewritersTimed.Accumulate(time.Since(start))
	}()

	err = run(base, sql, catalog, types, out)
	return convertErrorLocation(base.ErrorMessageMode, base.AttachErrorLocationPayload, sql, err)
}

func run(base *Options, sql string, catalog Catalog, types TypeFactory, out *Output) error {
	root := out.Root()

	rChecker := RuleSet(nil)
	debug := base.Debug
	runChecker := debug || !base.DisableChecker
	if runChecker {
		rChecker = FindRelevantRules(root)
	}
	rResolver := out.Properties.RelevantRewrites
	if debug && len(rResolver) > 0 {
		if !rResolver.Equal(rChecker) {
			return invariantf("", "resolver relevance set %v disagrees with scanner relevance set %v", rResolver, rChecker)
		}
	}

	rDetected := rChecker
	if base.DisableChecker {
		rDetected = rResolver
	}
	rApply := base.EnabledRules.Intersect(rDetected)

	hasLeading := len(base.LeadingRewriters) > 0
	hasTrailing := len(base.TrailingRewriters) > 0
	if len(rApply) == 0 && !hasLeading && !hasTrailing {
		return nil
	}

	mut := NewMutator(out)
	original := mut.ReleaseRoot()
	current := original
	installed := false
	defer func() {
		if !installed {
			// Put the tree back exactly as it was found; no partial
			// result is ever left installed on error.
			mut.Update(original, out.MaxColumnID)
		}
	}()

	var opts *Options
	var fallback *ColumnSequence
	ensureOpts := func() {
		if opts == nil {
			fallback = NewColumnSequence(0)
			opts = optionsForRewrite(base, out, fallback)
		}
	}

	// invoke runs rw and records its timing/count under id. Leading and
	// trailing user rewriters have no RuleID (they are not in the built-in
	// registry), so id is optional; pass -1 to skip per-rule accounting for
	// them while still accumulating into the overall rewriters-timed total.
	invoke := func(ruleName string, rw Rewriter, id RuleID) error {
		ensureOpts()
		var stop func()
		if id >= 0 {
			d := out.Runtime.Details(id)
			stop = startTimer(&d.Timed)
			d.Count++
		}
		newRoot, err := rw.Rewrite(opts, current, catalog, types, &out.Properties)
		if stop != nil {
			stop()
		}
		if err != nil {
			return err
		}
		if newRoot.IsZero() {
			return invariantf(ruleName, "rewriter returned a zero root")
		}
		current = newRoot
		return nil
	}

	for _, rw := range base.LeadingRewriters {
		if err := invoke(rw.Name(), rw, -1); err != nil {
			return err
		}
	}

	for k := 1; len(rApply) > 0; k++ {
		if k > MaxIterations {
			return &ResourceExhaustedError{MaxIterations: MaxIterations}
		}
		for _, id := range ApplicableOrder(rApply) {
			rw, ok := Get(id)
			if !ok {
				return invariantf(id.String(), "no rewriter registered for an enabled rule")
			}
			if err := invoke(id.String(), rw, id); err != nil {
				return err
			}
		}
		rChecker = FindRelevantRules(current)
		rApply = base.EnabledRules.Intersect(rChecker)
		// The scanner cannot distinguish RuleAnonymization's output from its
		// own trigger pattern (see anonymizationRewriter), so it would never
		// converge on its own; the rule is known to complete in one pass.
		rApply.Remove(RuleAnonymization)
	}

	for _, rw := range base.TrailingRewriters {
		if err := invoke(rw.Name(), rw, -1); err != nil {
			return err
		}
	}

	if opts == nil {
		// Nothing actually ran (e.g. both rewriter lists were empty and
		// rApply emptied out before the loop body ever executed); there is
		// nothing to install.
		return nil
	}

	finalMaxColumnID := out.MaxColumnID
	if v := uint64(opts.ColumnIDSequence.Last()); v > uint64(finalMaxColumnID) {
		finalMaxColumnID = ColumnID(v)
	}
	if err := mut.Update(current, finalMaxColumnID); err != nil {
		return err
	}
	installed = true

	if base.ValidateResolvedAST {
		stop := startTimer(&out.Runtime.ValidatorTimed)
		verr := Validate(out.Root(), types, base.AllowedHintsAndOptions, out.Columns)
		stop()
		if verr != nil {
			return verr
		}
	}

	if base.FieldsAccessedMode == FieldsAccessedLegacy {
		markFieldsAccessed(out.Root(), &out.Properties)
	}

	return nil
}

// markFieldsAccessed walks the installed tree and records every column
// reference as accessed in out's properties bag. This is a debug
// accounting mechanism inherited from engines that track unused-column
// diagnostics (FieldsAccessedLegacy); it must run last in the driver
// because it only touches bookkeeping, never the tree shape.
func markFieldsAccessed(root Root, props *OutputProperties) {
	count := 0
	root.walk(fieldsAccessedVisitor{count: &count})
	if count > 0 {
		props.Set("fields_accessed.legacy_marked", count)
	}
}

type fieldsAccessedVisitor struct{ count *int }

func (v fieldsAccessedVisitor) Visit(n expr.Node) expr.Visitor {
	if n == nil {
		return nil
	}
	if _, ok := n.(expr.Ident); ok {
		*v.count++
	}
	return v
}
