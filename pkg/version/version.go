// Package version carries build metadata for the rogue-dhcp binary.
package version

import (
	"fmt"
	"runtime"
)

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/newtron-network/rogue-dhcp/pkg/version.Version=v1.0.0 \
//	  -X github.com/newtron-network/rogue-dhcp/pkg/version.GitCommit=abc1234 \
//	  -X github.com/newtron-network/rogue-dhcp/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return fmt.Sprintf("%s (%s) built %s %s/%s", Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies the tool in controller requests.
func UserAgent() string {
	return "rogue-dhcp/" + Version
}
