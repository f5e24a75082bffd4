package common

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/ternarybob/quarry/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
}

// GetBuildInfo returns the linker-supplied version, falling back to the VCS
// revision recorded by the Go toolchain for the commit
func GetBuildInfo() BuildInfo {
	info := BuildInfo{Version: Version, Build: Build, GitCommit: GitCommit}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				info.GitCommit = setting.Value
			}
		}
	}
	return info
}

// GetVersion returns the current version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	info := GetBuildInfo()
	return fmt.Sprintf("%s (build: %s, commit: %s)", info.Version, info.Build, info.GitCommit)
}
