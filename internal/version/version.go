// Package version reports which winnow build produced a result. The short
// form is stamped into every exported report so results can be traced back
// to the fingerprinting code that made them.
//
// Release builds set the variables with -ldflags "-X ...version.Version=1.2.3"
// (likewise Commit and Date). Other builds fall back to the VCS stamp the Go
// toolchain embeds.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

const unknown = "unknown"

var (
	Version = "0.0.0"
	Commit  = unknown
	Date    = unknown
)

var vcsOnce sync.Once

// fillFromVCS copies the embedded VCS revision and time when no commit was
// set at link time.
func fillFromVCS() {
	vcsOnce.Do(func() {
		if Commit != unknown {
			return
		}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				Commit = s.Value
			case "vcs.time":
				Date = s.Value
			}
		}
	})
}

// shortCommit returns the first eight characters of the commit, or "".
func shortCommit() string {
	fillFromVCS()
	if Commit == unknown || len(Commit) < 8 {
		return ""
	}
	return Commit[:8]
}

// Info is the machine-readable build description.
type Info struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

// Current describes the running binary.
func Current() Info {
	fillFromVCS()
	return Info{
		Version:  Version,
		Commit:   Commit,
		Date:     Date,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short is the version recorded in report metadata: the version, plus the
// short commit when one is known.
func Short() string {
	if sha := shortCommit(); sha != "" {
		return fmt.Sprintf("%s (%s)", Version, sha)
	}
	return Version
}

// String is the line printed by "winnow version".
func String() string {
	info := Current()
	return fmt.Sprintf("winnow %s %s %s built %s", Short(), info.Go, info.Platform, info.Date)
}

// JSON is the output of "winnow version --json".
func JSON() string {
	data, err := json.MarshalIndent(Current(), "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
