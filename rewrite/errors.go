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

import "fmt"

// InvariantError indicates a programming-invariant violation inside the
// driver: a null child where one is required, a missing registry entry, or
// a resolver/scanner relevance mismatch caught by the debug cross-check.
// It is always fatal and is never expected in a correctly wired system.
type InvariantError struct {
	Rule    string
	Context string
}

func (e *InvariantError) Error() string {
	if e.Rule == "" {
		return "rewrite: invariant violation: " + e.Context
	}
	return fmt.Sprintf("rewrite: invariant violation in %s: %s", e.Rule, e.Context)
}

func invariantf(rule, format string, args ...any) error {
	return &InvariantError{Rule: rule, Context: fmt.Sprintf(format, args...)}
}

// ResourceExhaustedError is returned when the convergence loop exceeds its
// configured iteration bound without reaching a fixed point.
type ResourceExhaustedError struct {
	MaxIterations int
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("query exceeded configured maximum number of rewriter iterations (%d) without converging", e.MaxIterations)
}

// convertErrorLocation wraps the error returned by the internal driver body
// uniformly, using the error message mode the caller configured. Sneller's
// query errors already carry their own positional context (see
// expr.SyntaxError / expr.TypeError), so the conversion here is limited to
// deciding whether to fold in the original SQL text for additional context;
// it never discards the original error.
func convertErrorLocation(mode ErrorMessageMode, attachPayload bool, sql string, err error) error {
	if err == nil {
		return nil
	}
	if mode == ErrorMessageWithPayload && attachPayload && sql != "" {
		return fmt.Errorf("%w (while rewriting: %.120q)", err, sql)
	}
	return err
}
