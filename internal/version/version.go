package version

import (
	"runtime/debug"
	"strings"
)

// Set at link time, e.g. -ldflags "-X .../internal/version.Version=0.3.0".
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

// Resolve returns Version, suffixed with the VCS revision when the binary was
// not built from a release (no Commit injected) but the toolchain embedded
// one.
func Resolve() string {
	return resolveVersion(Version, Commit, debug.ReadBuildInfo)
}

func resolveVersion(base, commit string, buildInfo func() (*debug.BuildInfo, bool)) string {
	if base == "" {
		base = "0.0.0"
	}
	if commit != "" {
		return base
	}

	rev, dirty := vcsRevision(buildInfo)
	if rev == "" {
		return base
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "-dirty"
	}
	return base + "-" + rev
}

func vcsRevision(buildInfo func() (*debug.BuildInfo, bool)) (string, bool) {
	info, ok := buildInfo()
	if !ok || info == nil {
		return "", false
	}

	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = strings.TrimSpace(s.Value)
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return rev, dirty
}
