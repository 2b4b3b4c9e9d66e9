// Package version carries build metadata injected with -ldflags.
package version

var (
	// Version is the current application version.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the build metadata for -version output and logs.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
