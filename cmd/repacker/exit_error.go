// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/canuckistani/jetpack-repacker/pkg/types"
)

// ExitError ends a command with Code once its failure has been printed.
// Execute turns it into the process exit status.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap exposes the failure that set the code, when there is one.
func (e *ExitError) Unwrap() error { return e.Err }
