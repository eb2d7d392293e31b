// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime"
)

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = ""

	// GitCommit is the git commit hash
	GitCommit = ""
)

// Lines returns the report printed by "charocr version".
func Lines() []string {
	return []string{
		fmt.Sprintf("Version:    %s", Version),
		fmt.Sprintf("Commit:     %s", emptyAsNA(GitCommit)),
		fmt.Sprintf("Build Date: %s", emptyAsNA(BuildTime)),
		fmt.Sprintf("Go Version: %s", runtime.Version()),
		fmt.Sprintf("OS/Arch:    %s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func emptyAsNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
