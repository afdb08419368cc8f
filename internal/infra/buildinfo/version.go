// Package buildinfo exposes build metadata injected through ldflags:
//
//	go build -ldflags "-X github.com/yndnr/servicelayer-go/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/yndnr/servicelayer-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the build information. A binary built without ldflags falls
// back to the VCS revision recorded by the Go toolchain, when present.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Commit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if len(s.Value) > 12 {
					info.Commit = s.Value[:12]
				} else {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = s.Value
				}
			}
		}
	}
	return info
}

// String returns a one-line version string.
func String() string {
	i := Get()
	return fmt.Sprintf("%s (%s) built at %s, %s %s", i.Version, i.Commit, i.BuildTime, i.GoVersion, i.Platform)
}

// UserAgent returns the User-Agent sent to the server by component,
// e.g. "servicelayer-go/v1.2.0 (sl-cli)".
func UserAgent(component string) string {
	ua := "servicelayer-go/" + Version
	if component != "" {
		ua += " (" + component + ")"
	}
	return ua
}
