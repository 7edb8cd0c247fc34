// Package version holds build metadata. The variables are set with
// -ldflags "-X github.com/Sumatoshi-tech/heropicks/pkg/version.Version=...".
package version

import (
	"fmt"
	"runtime/debug"
)

const develVersion = "(devel)"

// Build metadata.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills metadata left unset by ldflags from the module
// build info, so `go install` builds still report their version and commit.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if ok {
		applyBuildInfo(info)
	}
}

func applyBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != develVersion {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("heropicks %s (commit: %s, built: %s)", Version, Commit, Date)
}
