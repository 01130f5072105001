package version

import (
	"runtime/debug"
)

// Set with -ldflags "-X motifcore/src/version.Version=..." at build time.
var (
	Commit         = "unknown"
	Version        = "unknown"
	BuildTimestamp = "unknown"
)

func GetBuildInfo() map[string]string {
	data := make(map[string]string)

	if bi, ok := debug.ReadBuildInfo(); ok {
		data["go_version"] = bi.GoVersion
		for _, s := range bi.Settings {
			data[s.Key] = s.Value
		}
	}

	data["commit"] = Commit
	data["version"] = Version
	data["build_timestamp"] = BuildTimestamp

	return data
}
