// Package version provides version information for the marmot library.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const unknownValue = "unknown"

// Build-time variables set by ldflags.
var (
	Version   = "dev"
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains build information resolved at runtime.
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path"`
}

// Info returns build information, preferring module metadata embedded by the
// Go toolchain when ldflags were not set.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.ModulePath = buildInfo.Main.Path
		if info.Version == "dev" && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			info.Version = buildInfo.Main.Version
		}
	}

	return info
}

// String returns a formatted version string.
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("marmot %s", b.Version))
	if b.GitCommit != unknownValue {
		sb.WriteString(fmt.Sprintf(" (%s)", shortCommit(b.GitCommit)))
	}
	sb.WriteString(fmt.Sprintf(" %s", b.GoVersion))
	return sb.String()
}

func shortCommit(commit string) string {
	const shortLen = 7
	if len(commit) > shortLen {
		return commit[:shortLen]
	}
	return commit
}

// IsRelease returns true if this is a release version (not dev).
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
