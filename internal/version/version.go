/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries build metadata.
package version

import (
	"fmt"
	"runtime"
)

// Version is set at build time via ldflags:
//
//	-X github.com/friendsincode/heirloom/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// Commit is the git revision, also set via ldflags.
var Commit = "unknown"

// String renders the version line printed by `heirloom version`.
func String() string {
	return fmt.Sprintf("heirloom %s (%s, %s)", Version, shortCommit(Commit), runtime.Version())
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
