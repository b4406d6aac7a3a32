// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors for the repacker CLI.
//
// ActionableError adds the failed operation, the add-on involved and
// remediation hints to an error. The Issue catalog holds longer Markdown
// guidance per failure class, rendered with glamour in verbose mode.
package issue
