/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })

	Version = "1.2.3"
	Commit = "0123456789abcdef0123"
	got := String()
	if !strings.HasPrefix(got, "heirloom 1.2.3 (0123456789ab, go") {
		t.Fatalf("String() = %q", got)
	}

	Commit = "dev"
	if got := String(); !strings.Contains(got, "(dev, ") {
		t.Fatalf("String() = %q, want short commit kept", got)
	}
}
