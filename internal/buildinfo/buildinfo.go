package buildinfo

import (
	"runtime/debug"
)

const shortRevLen = 7

// Revision returns the short vcs revision baked into the binary, so every
// worker can report which build it runs.
func Revision() (rev string) {
	rev = vcsSetting("vcs.revision")
	if len(rev) > shortRevLen {
		rev = rev[:shortRevLen]
	}
	return
}

func vcsSetting(key string) string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == key {
				return setting.Value
			}
		}
	}
	return ""
}
