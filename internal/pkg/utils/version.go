package utils

import "runtime/debug"

type Version struct {
	Version   string
	GoVersion string
	Module    string
}

func GetVersion() (version Version) {
	// Defaults to dev
	version.Version = "dev"

	if info, ok := debug.ReadBuildInfo(); ok {
		version.Module = info.Main.Path

		// Tagged builds installed with go install carry a module version
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			version.Version = info.Main.Version
		}

		for _, setting := range info.Settings {
			// This returns the current git hash
			if setting.Key == "vcs.revision" {
				version.Version = setting.Value
			}

			// This would show us if the current git tree is modified from the hash, possible changes that weren't committed
			if setting.Key == "vcs.modified" {
				if setting.Value == "true" {
					version.Version += " (modified)"
				}
			}
		}

		version.GoVersion = info.GoVersion
	}

	return version
}
