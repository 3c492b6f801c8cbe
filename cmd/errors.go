// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"dbrevel/cli/internal/httperrors"
)

// shownError marks an error already presented to the user, so Execute
// only sets the exit code.
type shownError struct{ err error }

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

// fail presents err on the command's stderr and marks it shown.
func fail(cmd *cobra.Command, err error, action string) error {
	if err == nil {
		return nil
	}
	rt.log.Debugw("command failed", "command", cmd.Name(), "error", err)
	return &shownError{err: httperrors.Present(cmd.ErrOrStderr(), err, action)}
}
