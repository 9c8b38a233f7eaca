/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version holds build information.
package version

import "runtime/debug"

// Version is the current version of the station.
// This is set at build time via ldflags:
//
//	-X github.com/luizarrieira/radio-lrr-iv/internal/version.Version=X.Y.Z
var Version = "dev"

// String returns the version, adding the VCS revision when the binary carries one.
func String() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return Version + " (" + s.Value[:7] + ")"
		}
	}
	return Version
}
