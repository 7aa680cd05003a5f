// Package build carries the version stamped into the queenbee binary.
// It imports no other internal package.
package build

import "runtime"

// Set with -ldflags "-X github.com/AntoineDao/queenbee/internal/build.Version=..." at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Platform  string
}

// Current returns the build information of the running binary.
func Current() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// IsDevBuild reports whether the binary was built without a release version.
func IsDevBuild() bool {
	return Version == "dev"
}
