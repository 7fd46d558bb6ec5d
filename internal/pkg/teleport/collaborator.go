// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import "github.com/aws/cfn-teleport/internal/pkg/cfntemplate"

// StackSummary is one entry of the collaborator's stack listing.
type StackSummary struct {
	Name   string
	Status string
}

// ResourceSummary is one entry of the collaborator's resource listing
// for a stack.
type ResourceSummary struct {
	LogicalID  string
	Type       string
	PhysicalID string
}

// RefactorStatus is a terminal or non-terminal status of a submitted
// Refactor operation, as reported by RefactorPoll.
type RefactorStatus string

const (
	RefactorCreateInProgress RefactorStatus = "CREATE_IN_PROGRESS"
	RefactorCreateComplete   RefactorStatus = "CREATE_COMPLETE"
	RefactorCreateFailed     RefactorStatus = "CREATE_FAILED"
	RefactorExecuteInProgress RefactorStatus = "EXECUTE_IN_PROGRESS"
	RefactorExecuteComplete   RefactorStatus = "EXECUTE_COMPLETE"
	RefactorExecuteFailed     RefactorStatus = "EXECUTE_FAILED"
)

// IsTerminal reports whether status is a state RefactorPoll will never
// transition out of.
func (s RefactorStatus) IsTerminal() bool {
	switch s {
	case RefactorCreateComplete, RefactorCreateFailed, RefactorExecuteComplete, RefactorExecuteFailed:
		return true
	default:
		return false
	}
}

// StackStatus mirrors the handful of CloudFormation stack statuses the
// Import path's polling loops care about. The IMPORT_* states are
// reported here, on the stack itself, after an import change set
// executes; DescribeChangeSet never carries them.
type StackStatus string

const (
	StackUpdateInProgress StackStatus = "UPDATE_IN_PROGRESS"
	StackUpdateComplete   StackStatus = "UPDATE_COMPLETE"
	StackUpdateFailed     StackStatus = "UPDATE_FAILED"
	StackRollbackComplete StackStatus = "UPDATE_ROLLBACK_COMPLETE"
	StackImportInProgress StackStatus = "IMPORT_IN_PROGRESS"
	StackImportComplete   StackStatus = "IMPORT_COMPLETE"
)

// InProgress reports whether s is one of CloudFormation's *_IN_PROGRESS
// statuses, generalized from internal/pkg/aws/cloudformation's
// StackStatus.InProgress().
func (s StackStatus) InProgress() bool {
	return len(s) > len("_IN_PROGRESS") && s[len(s)-len("_IN_PROGRESS"):] == "_IN_PROGRESS"
}

// ChangeSetStatus mirrors DescribeChangeSet's Status field, which only
// tracks the change set's computation. Execution progress after
// ChangeSetExecute shows up as the stack's own status instead.
type ChangeSetStatus string

const (
	ChangeSetCreatePending    ChangeSetStatus = "CREATE_PENDING"
	ChangeSetCreateInProgress ChangeSetStatus = "CREATE_IN_PROGRESS"
	ChangeSetCreateComplete   ChangeSetStatus = "CREATE_COMPLETE"
	ChangeSetFailed           ChangeSetStatus = "FAILED"
)

// Collaborator is the single capability boundary the driver and
// planner consume: listing, template I/O, validation, Refactor
// submission/polling, and the Import path's stack-update/changeset
// operations. A single interface lets both be exercised against an
// in-memory fake in tests.
type Collaborator interface {
	ListStacks() ([]StackSummary, error)
	ListResources(stack string) ([]ResourceSummary, error)
	GetTemplate(stack string) ([]byte, error)

	ValidateTemplate(body []byte) error

	RefactorSubmit(plan *RefactorPlan) (opID string, err error)
	RefactorPoll(opID string) (RefactorStatus, error)
	RefactorExecute(opID string) error
	RefactorActions(opID string) ([]string, error)

	StackUpdate(stack string, template *cfntemplate.Template) error
	StackStatus(stack string) (StackStatus, error)

	ChangeSetCreateImport(stack string, template *cfntemplate.Template, resourceIdentifiers map[string]string) (csID string, err error)
	ChangeSetDescribe(csID string) (ChangeSetStatus, error)
	ChangeSetExecute(csID string) error
}
