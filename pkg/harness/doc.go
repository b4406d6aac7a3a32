// SPDX-License-Identifier: MPL-2.0

// Package harness is a read-only model of the harness-options.json manifest
// that the add-on SDK packager embeds at the root of every add-on.
//
// The manifest schema changed incompatibly across SDK releases:
//
//   - module names moved from "name" to "moduleName" (1.0b5)
//   - requirements moved from "requires" to "requirements" (1.0b5)
//   - requirement references moved from "url" to "uri" (1.0b5) and to "path" (1.4)
//   - the entry point moved from "main" + "rootPaths" to "mainPath" (1.4)
//
// Accessors prefer the modern field and fall back to the legacy one, so a
// single model serves every release.
package harness
