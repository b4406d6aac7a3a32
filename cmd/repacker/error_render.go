// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/log"

	"github.com/canuckistani/jetpack-repacker/internal/artifact"
	"github.com/canuckistani/jetpack-repacker/internal/config"
	"github.com/canuckistani/jetpack-repacker/internal/issue"
	"github.com/canuckistani/jetpack-repacker/internal/repack"
	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/layout"
	"github.com/canuckistani/jetpack-repacker/pkg/reftable"
	"github.com/canuckistani/jetpack-repacker/pkg/verify"
)

// issueStyle is the glamour style used for the issue guide.
const issueStyle = "dark"

// classifyError maps an error to its issue catalog entry. It returns 0 for
// errors without a guide.
func classifyError(err error) issue.Id {
	switch {
	case errors.Is(err, harness.ErrMissingManifest):
		return issue.NotAnAddonId
	case errors.Is(err, reftable.ErrMissingData), errors.Is(err, reftable.ErrFetch):
		return issue.ReferenceDataUnavailableId
	case errors.Is(err, archive.ErrNotFound):
		return issue.FileNotFoundId
	case errors.Is(err, harness.ErrUnsupportedSchema):
		return issue.UnsupportedSchemaId
	case errors.Is(err, harness.ErrUnresolvedEntryPoint):
		return issue.UnresolvedEntryPointId
	case errors.Is(err, deps.ErrUnknownManifestEntry):
		return issue.UnknownManifestEntryId
	case errors.Is(err, verify.ErrUnknownSDKVersion):
		return issue.UnknownSDKVersionId
	case errors.Is(err, verify.ErrVerificationFailed):
		return issue.VerificationFailedId
	case errors.Is(err, layout.ErrUnsupportedLayout):
		return issue.UnsupportedLayoutId
	case errors.Is(err, repack.ErrExternalTool):
		return issue.PackagingToolFailedId
	case errors.Is(err, artifact.ErrStore):
		return issue.ArtifactStoreFailedId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		switch ae.Operation {
		case "load configuration", "validate configuration":
			return issue.ConfigLoadFailedId
		case "resolve repack target":
			return issue.ArtifactStoreFailedId
		}
	}
	return 0
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError writes the styled error and, in verbose mode, the matching
// issue guide.
func renderError(w io.Writer, logger *log.Logger, err error, verbose bool) {
	fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	if !verbose {
		return
	}
	id := classifyError(err)
	if id == 0 {
		return
	}
	if entry := issue.Get(id); entry != nil {
		rendered, renderErr := entry.Render(issueStyle)
		if renderErr != nil {
			logger.Warn("failed to render issue guide", "issue", id, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}
