// Package version holds the build identity of the clausefang binary. The
// variables are set with -ldflags "-X" at release time.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Version is the release version of the binary.
var Version = "dev"

// Commit is the Git hash the binary was built from.
var Commit = unknown

// Date is the build timestamp.
var Date = unknown

// InitBinaryVersion fills Version and Commit from the embedded module build
// info when the linker did not set them.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("clausefang %s (commit: %s, built: %s)", Version, Commit, Date)
}
