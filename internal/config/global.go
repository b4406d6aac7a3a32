// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory when set.
var configDirOverride string

// Reset clears the config directory override.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir. The CLI tests use it to
// keep the reference data and config.cue out of the user's home.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
