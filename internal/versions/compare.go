package versions

import "github.com/Masterminds/semver/v3"

// Skew describes how a server version relates to the CLI version
type Skew int

const (
	// SkewNone means the versions share a major version, or either one is not semver
	SkewNone Skew = iota
	// SkewServerNewer means the server runs a later major version than the CLI
	SkewServerNewer
	// SkewServerOlder means the server runs an earlier major version than the CLI
	SkewServerOlder
)

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// It uses semantic versioning for comparison when both strings are valid semver,
// and falls back to lexicographic string comparison otherwise.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	if errNew != nil || errOld != nil {
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}

// MajorSkew compares the major versions of the CLI and the server. Builds
// without a semver version (e.g. "build-1a2b3c4d") never report skew.
func MajorSkew(cliVersion, serverVersion string) Skew {
	cli, errCLI := semver.NewVersion(cliVersion)
	server, errServer := semver.NewVersion(serverVersion)
	if errCLI != nil || errServer != nil {
		return SkewNone
	}

	switch {
	case server.Major() > cli.Major():
		return SkewServerNewer
	case server.Major() < cli.Major():
		return SkewServerOlder
	default:
		return SkewNone
	}
}
