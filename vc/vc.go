// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package vc provides buildtime information.
package vc // import "github.com/perfpt/jitperf/vc"

import "fmt"

var (
	// Set at link time with -ldflags "-X github.com/perfpt/jitperf/vc.version=...".

	// revision is the git commit the binary was built from
	revision = ""
	// buildTimestamp, timestamp of the build
	buildTimestamp = ""
	// version in vX.Y.Z{-N-abbrev} format (via git-describe --tags)
	version = ""
)

// Revision of the build.
func Revision() string {
	return revision
}

// BuildTimestamp returns the timestamp of the build.
func BuildTimestamp() string {
	return buildTimestamp
}

// Version in vX.Y.Z{-N-abbrev} format. Unstamped builds report "dev".
func Version() string {
	if version == "" {
		return "dev"
	}
	return version
}

// Summary is the one-line build description printed by `jitperf version`.
func Summary() string {
	return fmt.Sprintf("jitperf %s (revision %s, build timestamp %s)",
		Version(), Revision(), BuildTimestamp())
}
