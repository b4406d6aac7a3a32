// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the jetpack-repacker CLI commands.
//
// The root command loads the configuration, builds the logger and wires an
// addon.Service; the deps, checksum, unpack and repack subcommands then run
// one operation on a single add-on, or on every add-on of a folder with
// --batch.
package cmd
