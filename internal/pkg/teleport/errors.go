// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"errors"
	"fmt"
)

// PlanValidationError wraps the provider's rejection of a produced
// template. The provider's diagnostic is surfaced verbatim; no
// client-side allowlist of resource types is maintained.
type PlanValidationError struct {
	StackName string
	Err       error
}

func (e *PlanValidationError) Error() string {
	return fmt.Sprintf("provider rejected the %s template: %v", e.StackName, e.Err)
}

func (e *PlanValidationError) Unwrap() error { return e.Err }

// Phase names the driver phase an error occurred in.
type Phase string

const (
	PhaseRefactorValidate   Phase = "refactor-validate"
	PhaseRefactorExecute    Phase = "refactor-execute"
	PhaseImportSourceRetain Phase = "import-source-retain"
	PhaseImportSourceRemove Phase = "import-source-remove"
	PhaseImportChangeset    Phase = "import-changeset"
	PhaseImportTargetFinal  Phase = "import-target-final"
)

// RemoteOperationError is a terminal failure surfaced by a poll.
// Partial distinguishes Import-mode failures that occurred after the
// source-side removal (phase 2) already completed: recovery then
// requires the saved templates rather than a simple retry.
type RemoteOperationError struct {
	Phase   Phase
	Reason  string
	Partial bool
}

func (e *RemoteOperationError) Error() string {
	if e.Partial {
		return fmt.Sprintf("partial failure in phase %s: %s\nthe moving resources are no longer in the source stack and not yet in the target; see the saved templates for recovery", e.Phase, e.Reason)
	}
	return fmt.Sprintf("operation failed in phase %s: %s", e.Phase, e.Reason)
}

// IsPartialFailure reports whether err is a RemoteOperationError or
// TimeoutError carrying Partial.
func IsPartialFailure(err error) bool {
	var roe *RemoteOperationError
	if errors.As(err, &roe) {
		return roe.Partial
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Partial
	}
	return false
}

// TimeoutError is raised when a polling phase exceeds its budget; it
// carries the same Partial semantics as RemoteOperationError.
type TimeoutError struct {
	Phase   Phase
	Partial bool
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for phase %s to reach a terminal status", e.Phase)
}
