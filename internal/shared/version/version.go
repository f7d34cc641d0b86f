// Package version reports the build version set through ldflags:
//
//	go build -ldflags "-X github.com/cityinfra/trafficcontrol/internal/shared/version.Version=1.4.0"
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is overwritten at link time.
var Version = "dev"

// Normalize ensures version string has "v" prefix for semver compatibility.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	if version == "" {
		return ""
	}
	version = strings.TrimSpace(version)
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// String returns the canonical semver of Version, or "dev" for local builds.
func String() string {
	v := Normalize(Version)
	if !semver.IsValid(v) {
		return "dev"
	}
	return semver.Canonical(v)
}
