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

// Package rewrite implements the fixed-point driver that runs after a query
// has been parsed and checked: it repeatedly applies registered rewriters to
// an expr.Node tree until no enabled rewriter's trigger pattern remains.
//
// A rewriter is a pure tree-to-tree transform (see Rewriter). The driver
// (Run) is responsible for ordering, termination, column-id hygiene across
// rewriter-internal sub-analyses, keeping a resolver-provided relevance hint
// in sync with a post-hoc scanner (FindRelevantRules), and re-validating the
// tree once rewriting has converged.
package rewrite
