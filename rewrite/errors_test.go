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
	"errors"
	"strings"
	"testing"
)

func TestConvertErrorLocationPassthrough(t *testing.T) {
	sentinel := errors.New("boom")
	got := convertErrorLocation(ErrorMessagePlain, true, "SELECT 1", sentinel)
	if got != sentinel {
		t.Fatalf("plain mode must not alter the error, got %v", got)
	}
}

func TestConvertErrorLocationAttachesPayload(t *testing.T) {
	sentinel := errors.New("boom")
	got := convertErrorLocation(ErrorMessageWithPayload, true, "SELECT 1", sentinel)
	if !errors.Is(got, sentinel) {
		t.Fatal("wrapped error must still satisfy errors.Is against the original")
	}
	if !strings.Contains(got.Error(), "SELECT 1") {
		t.Fatalf("expected sql text in message, got %q", got.Error())
	}
}

func TestConvertErrorLocationNil(t *testing.T) {
	if err := convertErrorLocation(ErrorMessageWithPayload, true, "x", nil); err != nil {
		t.Fatalf("expected nil passthrough, got %v", err)
	}
}

func TestInvariantErrorMessage(t *testing.T) {
	err := invariantf("SOME_RULE", "child %q is nil", "x")
	if !strings.Contains(err.Error(), "SOME_RULE") || !strings.Contains(err.Error(), "child \"x\" is nil") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestResourceExhaustedErrorMessage(t *testing.T) {
	err := &ResourceExhaustedError{MaxIterations: 25}
	if !strings.Contains(err.Error(), "25") {
		t.Fatalf("expected limit in message, got %s", err.Error())
	}
}
