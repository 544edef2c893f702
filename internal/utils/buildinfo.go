// Package utils holds process-wide helpers: logging, version and naming constants.
package utils

import (
	"fmt"
	"runtime/debug"
)

const (
	unknownVersion     = "unknown"
	developmentVersion = "(devel)"
	versionLineFormat  = "%s %s"
)

// applicationVersion is set at link time with
// -ldflags "-X github.com/temirov/commizard/internal/utils.applicationVersion=v1.2.3".
var applicationVersion = ""

// GetApplicationVersion prefers the link-time version, then the module version
// recorded in the build info.
func GetApplicationVersion() string {
	if applicationVersion != "" {
		return applicationVersion
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != developmentVersion {
		return buildInfo.Main.Version
	}
	return unknownVersion
}

// VersionLine is printed by --version.
func VersionLine() string {
	return fmt.Sprintf(versionLineFormat, ApplicationDisplayName, GetApplicationVersion())
}
