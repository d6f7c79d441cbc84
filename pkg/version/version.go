// Package version exposes build metadata for gh-scoped-creds. The values are
// injected at build time via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"time"
)

var (
	// Version is the semantic version of the release.
	Version = "dev"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
	// BuildDate is the RFC3339 build timestamp.
	BuildDate = "unknown"

	goVersion = runtime.Version()
	platform  = runtime.GOOS + "/" + runtime.GOARCH
)

type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"gitCommit" yaml:"gitCommit"`
	BuildDate string    `json:"buildDate" yaml:"buildDate"`
	GoVersion string    `json:"goVersion" yaml:"goVersion"`
	Platform  string    `json:"platform" yaml:"platform"`
	BuildTime time.Time `json:"buildTime,omitempty" yaml:"buildTime,omitempty"`
}

// Get returns the build metadata of the running binary.
func Get() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: goVersion,
		Platform:  platform,
	}
	if t, err := time.Parse(time.RFC3339, BuildDate); err == nil {
		info.BuildTime = t
	}
	return info
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("gh-scoped-creds %s (commit: %s, built: %s, %s %s)", b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}

// UserAgent is sent with every request to GitHub.
func UserAgent() string {
	return "gh-scoped-creds/" + Version
}
