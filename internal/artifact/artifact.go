// Package artifact names built binaries on disk.
package artifact

import (
	"strings"
)

const windows = "windows"

// Path returns buildDir/packageName_version_os_arch, with ".exe" appended
// only when osName is exactly "windows". buildDir is used as given, joined
// with a forward slash; an empty buildDir yields the bare name.
func Path(packageName, version, osName, arch, buildDir string) string {
	name := packageName + "_" + version + "_" + osName + "_" + arch + Suffix(osName)
	switch {
	case buildDir == "":
		return name
	case strings.HasSuffix(buildDir, "/"):
		return buildDir + name
	default:
		return buildDir + "/" + name
	}
}

// BinaryName is the installed name of a package binary.
func BinaryName(packageName, osName string) string {
	return packageName + Suffix(osName)
}

// Suffix is the executable suffix for osName. The match is case-sensitive.
func Suffix(osName string) string {
	if osName == windows {
		return ".exe"
	}
	return ""
}
