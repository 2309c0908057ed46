// Package version exposes the tool version stamped into manifests.
package version

import "github.com/Masterminds/semver/v3"

// tool is the version of the pack tool. Kept as a parsed semver so an
// invalid version string fails at init, not inside a sealed manifest.
var tool = semver.MustParse("0.1.0")

// Tool returns the canonical semver string written into
// manifest.tool_version and the operator document.
func Tool() string {
	return tool.String()
}

// SameMajor reports whether v is a valid semver with the same major
// version as this tool. Used when comparing packs produced by
// different tool releases.
func SameMajor(v string) bool {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return parsed.Major() == tool.Major()
}
