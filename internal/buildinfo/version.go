// Package buildinfo reports what build of squatwatch is running, from the
// metadata the Go toolchain embeds in the binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Info describes the running build.
type Info struct {
	// Version is the module version for tagged installs, otherwise
	// "dev-<short revision>[-dirty]", "dev", or "unknown".
	Version   string
	Revision  string
	Modified  bool
	Time      time.Time // commit time; zero when unknown
	GoVersion string
}

// Read returns information about the running binary.
func Read() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: "unknown"}
	}
	return fromBuildInfo(bi)
}

// Version returns the version string of the running binary.
func Version() string {
	return Read().Version
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{GoVersion: bi.GoVersion}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		case "vcs.time":
			info.Time, _ = time.Parse(time.RFC3339, s.Value)
		}
	}

	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
		return info
	}
	info.Version = "dev"
	if info.Revision != "" {
		info.Version += "-" + shortRevision(info.Revision)
		if info.Modified {
			info.Version += "-dirty"
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String renders the info for `squatwatch version`.
func (i Info) String() string {
	s := "squatwatch " + i.Version
	// Dev versions already carry the revision.
	if i.Revision != "" && !strings.HasPrefix(i.Version, "dev") {
		s += fmt.Sprintf(" (%s)", shortRevision(i.Revision))
	}
	if !i.Time.IsZero() {
		s += " built from a commit of " + i.Time.UTC().Format(time.DateOnly)
	}
	if i.GoVersion != "" {
		s += ", " + i.GoVersion
	}
	return s
}
