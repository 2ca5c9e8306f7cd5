// Package version reports the litmatch build identity.
//
// Release builds inject the variables below via
// -ldflags "-X github.com/litmatch/litmatch/pkg/version.Version=v1.2.3 ...";
// a plain `go build` reports a dev build.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, or "dev" for unreleased builds.
	Version = "dev"

	// Commit is the short git commit hash the binary was built from.
	Commit = "unknown"

	// Date is the RFC3339 build timestamp.
	Date = "unknown"
)

// BuildInfo is the JSON shape of `litmatch version --json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns the one-line human form.
func String() string {
	return fmt.Sprintf("litmatch %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, runtime.Version())
}

// Short returns the bare version.
func Short() string {
	return Version
}

// Info returns the structured build identity.
func Info() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
