// Package version carries build metadata stamped in at link time.
package version

// Overridden at build time:
// go build -ldflags "-X attrib/internal/version.Version=1.0.0 -X attrib/internal/version.Commit=abc123"
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the short form shown in diagnostics: the version plus an
// abbreviated commit when one was stamped in.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full is the multi-line block printed for the version flag.
func Full() string {
	return "attrib version " + Version +
		"\ncommit: " + Commit +
		"\nbuilt:  " + BuildDate
}
