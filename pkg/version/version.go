// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/chmdznr/filetx/pkg/version.Version=...".
package version

var (
	// Version is the release version
	Version = "dev"
	// GitCommit is the commit the binary was built from
	GitCommit = "unknown"
	// BuildTime is the UTC build timestamp
	BuildTime = "unknown"
)

// String returns a one-line summary of the build.
func String() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
