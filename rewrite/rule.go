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

// RuleID identifies a built-in rewriter. The set of valid RuleIDs is closed
// and known at build time; RegistrationOrder reports the order in which
// rules of each ID are applied within a single convergence sweep.
type RuleID int

const (
	// RuleNullIfError rewrites NULLIFERROR(x) into IFERROR(x, CAST(NULL AS <type-of-x>)).
	RuleNullIfError RuleID = iota
	// RuleAnonymization rewrites ANONYMIZE(x) into a noise-injected form.
	// The relevance scanner cannot distinguish this rule's output from its
	// own input (see driver.go), so the driver special-cases it.
	RuleAnonymization

	numBuiltinRules
)

var ruleNames = [numBuiltinRules]string{
	RuleNullIfError:   "NULLIFERROR_REWRITER",
	RuleAnonymization: "ANONYMIZATION",
}

// String returns the canonical name of the rule, matching the name used in
// AnalyzerOptions.enabled_rewrites-style configuration.
func (r RuleID) String() string {
	if r >= 0 && r < numBuiltinRules {
		return ruleNames[r]
	}
	return "UNKNOWN_REWRITER"
}

// RuleSet is a set of RuleIDs. The zero value is the empty set.
type RuleSet map[RuleID]struct{}

// NewRuleSet builds a RuleSet from the given IDs.
func NewRuleSet(ids ...RuleID) RuleSet {
	s := make(RuleSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a member of the set.
func (s RuleSet) Has(id RuleID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s RuleSet) Add(id RuleID) {
	s[id] = struct{}{}
}

// Remove deletes id from the set, if present.
func (s RuleSet) Remove(id RuleID) {
	delete(s, id)
}

// Clone returns an independent copy of the set.
func (s RuleSet) Clone() RuleSet {
	out := make(RuleSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns the intersection of s and other as a new RuleSet.
func (s RuleSet) Intersect(other RuleSet) RuleSet {
	out := make(RuleSet)
	small, big := s, other
	if len(other) < len(s) {
		small, big = other, s
	}
	for id := range small {
		if big.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether s and other contain exactly the same rules.
func (s RuleSet) Equal(other RuleSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}
