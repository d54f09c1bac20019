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
	"github.com/SnellerInc/sneller/plan"
)

// Catalog is the read-only lookup of tables available to rewriters. It is
// satisfied by the same binding environment the query planner uses.
type Catalog = plan.Env

// TypeFactory refines the type of nodes whose type would otherwise be
// unknown to a rewriter (e.g. columns from a table with a declared schema).
type TypeFactory = expr.Hint

// NameResolutionMode controls how bare identifiers are resolved within
// rewriter-synthesized fragments.
type NameResolutionMode int

const (
	NameResolutionDefault NameResolutionMode = iota
	NameResolutionStrict
)

// ParameterMode controls how query parameters are addressed.
type ParameterMode int

const (
	ParameterPositional ParameterMode = iota
	ParameterNamed
)

// StatementContext distinguishes the top-level statement kind being
// (re-)analyzed.
type StatementContext int

const (
	StatementContextDefault StatementContext = iota
)

// ErrorMessageMode controls how driver errors are rendered.
type ErrorMessageMode int

const (
	ErrorMessagePlain ErrorMessageMode = iota
	ErrorMessageWithPayload
)

// FieldsAccessedMode controls whether the driver marks every field of the
// installed tree as accessed once rewriting has converged. This exists
// purely for debug accounting in engines that track unused-column
// diagnostics.
type FieldsAccessedMode int

const (
	FieldsAccessedDefault FieldsAccessedMode = iota
	FieldsAccessedLegacy
)

// HintsAndOptions is an opaque allow-list passed through to the Validator;
// the driver never inspects it.
type HintsAndOptions struct {
	AllowedHints   []string
	AllowedOptions []string
}

// Options is the caller-supplied configuration for a driver call. The
// driver never mutates the Options a caller passes to Run; it derives a
// private copy (see optionsForRewrite) for use inside rewriter invocations.
type Options struct {
	// EnabledRules is the set of built-in rules that may fire.
	EnabledRules RuleSet
	// LeadingRewriters run once, before the convergence loop, in order.
	LeadingRewriters []Rewriter
	// TrailingRewriters run once, after the convergence loop, in order.
	TrailingRewriters []Rewriter

	NameResolutionMode        NameResolutionMode
	AllowWithExpressions      bool
	AllowUndeclaredParameters bool
	ParameterMode             ParameterMode
	StatementContext          StatementContext

	// Arena and IDPool are normally left nil by the caller; OptionsForRewrite
	// overrides them with the current output's arena and pool.
	Arena  *Arena
	IDPool *IDPool

	// ColumnIDSequence, if set, is used (and advanced in place) instead of a
	// driver-local fallback sequence. The caller retains ownership and must
	// keep it alive for at least as long as any Options derived from it.
	ColumnIDSequence *ColumnSequence

	// Columns is the uniqueness ledger a rewriter must register a new
	// column-definition site with, via Columns.Assign, whenever it draws an
	// id from ColumnIDSequence to back a synthesized binding. Overridden by
	// optionsForRewrite to follow the current output, the same way Arena and
	// IDPool are.
	Columns *ColumnBook

	// ExpressionColumnBindings maps parameter-like names to the expressions
	// they stand for in the caller's query. Cleared by OptionsForRewrite.
	ExpressionColumnBindings map[string]expr.Node

	ErrorMessageMode           ErrorMessageMode
	AttachErrorLocationPayload bool
	FieldsAccessedMode         FieldsAccessedMode
	ValidateResolvedAST        bool
	AllowedHintsAndOptions     *HintsAndOptions

	// PreRewriteCallback, if set, is invoked once before any rewriting,
	// with exclusive access to the output.
	PreRewriteCallback func(*Output) error

	// DisableChecker, when set, makes the driver trust the resolver's
	// relevance set instead of running the scanner on every pass (outside
	// of debug cross-checks).
	DisableChecker bool
	// Debug enables the resolver/scanner cross-check assertion described in
	// §4.4.1 of the driver's design.
	Debug bool
}

// clone returns a deep-enough copy of o suitable for mutation by
// optionsForRewrite: slices and maps are copied so that mutating the clone
// never affects the caller's Options.
func (o *Options) clone() *Options {
	c := *o
	if o.EnabledRules != nil {
		c.EnabledRules = o.EnabledRules.Clone()
	}
	if o.LeadingRewriters != nil {
		c.LeadingRewriters = append([]Rewriter(nil), o.LeadingRewriters...)
	}
	if o.TrailingRewriters != nil {
		c.TrailingRewriters = append([]Rewriter(nil), o.TrailingRewriters...)
	}
	if o.ExpressionColumnBindings != nil {
		c.ExpressionColumnBindings = make(map[string]expr.Node, len(o.ExpressionColumnBindings))
		for k, v := range o.ExpressionColumnBindings {
			c.ExpressionColumnBindings[k] = v
		}
	}
	return &c
}

// optionsForRewrite derives an Options suitable for passing to rewriters.
// Most settings are copied from base, which is what the outer statement was
// analyzed with; a handful are overridden as required by rewriter fragment
// substitution (see the field-level comments below for the rationale).
//
// If base does not own a column-id sequence, fallback is adopted and
// advanced past output.MaxColumnID before this function returns. The
// caller must keep fallback alive for at least as long as the returned
// Options.
func optionsForRewrite(base *Options, output *Output, fallback *ColumnSequence) *Options {
	o := base.clone()

	// Rewriter fragments are synthesized from templates; strict mode
	// requires column qualification and catches ambiguity that would
	// otherwise silently differ between engines.
	o.NameResolutionMode = NameResolutionStrict

	// WITH-expressions are used as an implementation device by several
	// rewriters; this only affects rewrite-internal re-analysis, never the
	// user's query surface.
	o.AllowWithExpressions = true

	// Rewrite-internal fragment substitution uses named query parameters as
	// an implementation device.
	o.AllowUndeclaredParameters = false
	o.ParameterMode = ParameterNamed
	o.StatementContext = StatementContextDefault

	// Arenas, id pools, and the column book always follow the current
	// output, overriding whatever the caller had set.
	o.Arena = output.Arena
	o.IDPool = output.IDPool
	o.Columns = output.Columns

	// Expression-column bindings from the user-supplied options can collide
	// with columns synthesized during rewriter sub-analyses.
	o.ExpressionColumnBindings = nil

	if o.ColumnIDSequence == nil {
		fallback.AdvancePast(output.MaxColumnID)
		o.ColumnIDSequence = fallback
	}
	return o
}
