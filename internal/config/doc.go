// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/jetpack-repacker/config.cue (or the XDG
// equivalent on Linux, ~/Library/Application Support/jetpack-repacker/config.cue on
// macOS, %APPDATA%\jetpack-repacker\config.cue on Windows), falling back to
// ./config.cue. Values are validated against the embedded CUE schema
// (config_schema.cue) and can be overridden with JETPACK_REPACKER_* variables.
package config
