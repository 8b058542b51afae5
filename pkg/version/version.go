// Package version exposes build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/NERVsystems/ecoroutemcp/pkg/version.BuildVersion=v1.2.0"
var (
	BuildVersion = "dev"
	BuildCommit  = ""
	BuildDate    = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if BuildVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		BuildVersion = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if BuildCommit == "" {
				BuildCommit = s.Value
			}
		case "vcs.time":
			if BuildDate == "" {
				BuildDate = s.Value
			}
		}
	}
}

// Info returns the build metadata as a flat map.
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"go_version": runtime.Version(),
		"commit":     BuildCommit,
		"build_date": BuildDate,
	}
}

// String returns a one-line version banner.
func String() string {
	commit := BuildCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		commit = "unknown"
	}
	return fmt.Sprintf("ecoroutemcp %s (commit %s, built %s, %s)", BuildVersion, commit, orUnknown(BuildDate), runtime.Version())
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
