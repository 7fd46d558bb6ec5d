// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
)

// PollConfig bounds a single phase's polling loop.
type PollConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultPollConfig is the interval and per-phase timeout used against
// a real provider.
var DefaultPollConfig = PollConfig{Interval: 2 * time.Second, Timeout: 30 * time.Minute}

// Progress reports driver activity to a spinner; nil is a valid no-op
// reporter, so callers that don't care about progress (tests) can pass
// it through unchanged.
type Progress interface {
	Start(label string)
	Stop(msg string)
}

type noopProgress struct{}

func (noopProgress) Start(string) {}
func (noopProgress) Stop(string)  {}

func withProgress(p Progress) Progress {
	if p == nil {
		return noopProgress{}
	}
	return p
}

// ExecuteRefactorPlan drives the atomic path: validate every
// affected stack's template, submit the plan, poll validation to a
// terminal status, execute, then poll execution to a terminal status.
func ExecuteRefactorPlan(ctx context.Context, c Collaborator, plan *RefactorPlan, cfg PollConfig, progress Progress) error {
	progress = withProgress(progress)

	for _, def := range plan.StackDefinitions {
		body, err := cfntemplate.Encode(def.Template, cfntemplate.FormatYAML)
		if err != nil {
			return fmt.Errorf("encode %s template: %w", def.StackName, err)
		}
		if err := c.ValidateTemplate(body); err != nil {
			return &PlanValidationError{StackName: def.StackName, Err: err}
		}
	}

	progress.Start("submitting refactor plan")
	opID, err := c.RefactorSubmit(plan)
	if err != nil {
		progress.Stop("submission failed")
		return err
	}

	status, err := pollRefactor(ctx, c, opID, cfg, PhaseRefactorValidate, func(s RefactorStatus) bool {
		return s == RefactorCreateComplete || s == RefactorCreateFailed
	})
	if err != nil {
		progress.Stop("validation failed")
		return err
	}
	if status == RefactorCreateFailed {
		progress.Stop("validation failed")
		return &RemoteOperationError{Phase: PhaseRefactorValidate, Reason: string(status)}
	}
	progress.Stop("plan validated")

	if actions, err := c.RefactorActions(opID); err == nil {
		progress.Start(fmt.Sprintf("executing %s", pluralActions(len(actions))))
	} else {
		progress.Start("executing refactor plan")
	}
	if err := c.RefactorExecute(opID); err != nil {
		progress.Stop("execute request failed")
		return err
	}

	status, err = pollRefactor(ctx, c, opID, cfg, PhaseRefactorExecute, func(s RefactorStatus) bool {
		return s == RefactorExecuteComplete || s == RefactorExecuteFailed
	})
	if err != nil {
		progress.Stop("execution failed")
		return err
	}
	if status == RefactorExecuteFailed {
		progress.Stop("execution failed")
		return &RemoteOperationError{Phase: PhaseRefactorExecute, Reason: string(status)}
	}
	progress.Stop("refactor complete")
	return nil
}

func pluralActions(n int) string {
	if n == 1 {
		return "1 planned action"
	}
	return fmt.Sprintf("%d planned actions", n)
}

func pollRefactor(ctx context.Context, c Collaborator, opID string, cfg PollConfig, phase Phase, terminal func(RefactorStatus) bool) (RefactorStatus, error) {
	deadline := time.Now().Add(cfg.Timeout)
	for {
		status, err := c.RefactorPoll(opID)
		if err != nil {
			return status, err
		}
		if terminal(status) {
			return status, nil
		}
		if time.Now().After(deadline) {
			return status, &TimeoutError{Phase: phase}
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
}

// ExecuteImportPlan drives the four-phase legacy path. Each phase
// reaches its own terminal status before the next begins. A failure in
// phase 3 (the import changeset) or phase 4 is labeled Partial: by then
// the moving resources have already left the source stack.
func ExecuteImportPlan(ctx context.Context, c Collaborator, plan *ImportPlan, cfg PollConfig, progress Progress) error {
	progress = withProgress(progress)

	steps := []struct {
		phase    Phase
		label    string
		template *cfntemplate.Template
	}{
		{PhaseImportSourceRetain, fmt.Sprintf("retaining moving resources in %s", plan.SourceStack), plan.SourceRetained},
		{PhaseImportSourceRemove, fmt.Sprintf("removing moving resources from %s", plan.SourceStack), plan.SourceRemoved},
	}
	updateDone := func(s StackStatus) bool { return s == StackUpdateComplete }
	for _, step := range steps {
		progress.Start(step.label)
		if err := updateStackAndWait(ctx, c, plan.SourceStack, step.template, cfg, step.phase, false, updateDone); err != nil {
			progress.Stop("failed")
			return err
		}
		progress.Stop("done")
	}

	progress.Start(fmt.Sprintf("importing moving resources into %s", plan.TargetStack))
	csID, err := c.ChangeSetCreateImport(plan.TargetStack, plan.TargetWithPolicy, plan.ResourceIdentifiers)
	if err != nil {
		progress.Stop("failed")
		return &RemoteOperationError{Phase: PhaseImportChangeset, Reason: err.Error(), Partial: true}
	}
	if err := pollChangeSetCreation(ctx, c, csID, cfg); err != nil {
		progress.Stop("failed")
		return err
	}
	if err := c.ChangeSetExecute(csID); err != nil {
		progress.Stop("failed")
		return &RemoteOperationError{Phase: PhaseImportChangeset, Reason: err.Error(), Partial: true}
	}
	// The change set stops reporting once it executes; the import's
	// progress and terminal state show up as the target stack's status.
	if err := waitForStack(ctx, c, plan.TargetStack, cfg, PhaseImportChangeset, true, func(s StackStatus) bool {
		return s == StackImportComplete
	}); err != nil {
		progress.Stop("failed")
		return err
	}
	progress.Stop("import complete")

	progress.Start(fmt.Sprintf("clearing retention policy in %s", plan.TargetStack))
	// When every moved resource already carried an explicit policy the
	// final template matches the imported one, the update is a no-op,
	// and the stack stays in IMPORT_COMPLETE -- equally a success here.
	finalDone := func(s StackStatus) bool {
		return s == StackUpdateComplete || s == StackImportComplete
	}
	if err := updateStackAndWait(ctx, c, plan.TargetStack, plan.TargetFinal, cfg, PhaseImportTargetFinal, true, finalDone); err != nil {
		// A template with nothing left to change (every moved resource
		// already carried an explicit policy, or a prior partial run
		// already cleared the added one) is not a failure -- the import
		// already succeeded.
		if !isNoChangesError(err) {
			progress.Stop("failed")
			return err
		}
	}
	progress.Stop("done")
	return nil
}

func updateStackAndWait(ctx context.Context, c Collaborator, stack string, template *cfntemplate.Template, cfg PollConfig, phase Phase, partial bool, succeeded func(StackStatus) bool) error {
	if err := c.StackUpdate(stack, template); err != nil {
		return &RemoteOperationError{Phase: phase, Reason: err.Error(), Partial: partial}
	}
	return waitForStack(ctx, c, stack, cfg, phase, partial, succeeded)
}

func waitForStack(ctx context.Context, c Collaborator, stack string, cfg PollConfig, phase Phase, partial bool, succeeded func(StackStatus) bool) error {
	deadline := time.Now().Add(cfg.Timeout)
	for {
		status, err := c.StackStatus(stack)
		if err != nil {
			return err
		}
		if !status.InProgress() {
			if succeeded(status) {
				return nil
			}
			return &RemoteOperationError{Phase: phase, Reason: string(status), Partial: partial}
		}
		if time.Now().After(deadline) {
			return &TimeoutError{Phase: phase, Partial: partial}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
}

// pollChangeSetCreation waits for the import change set's computation
// to settle. Only the creation states are visible on the change set
// itself; waitForStack covers everything after ChangeSetExecute.
func pollChangeSetCreation(ctx context.Context, c Collaborator, csID string, cfg PollConfig) error {
	deadline := time.Now().Add(cfg.Timeout)
	for {
		status, err := c.ChangeSetDescribe(csID)
		if err != nil {
			return err
		}
		if status == ChangeSetCreateComplete {
			return nil
		}
		if status == ChangeSetFailed {
			return &RemoteOperationError{Phase: PhaseImportChangeset, Reason: string(status), Partial: true}
		}
		if time.Now().After(deadline) {
			return &TimeoutError{Phase: PhaseImportChangeset, Partial: true}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
}

func isNoChangesError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no changes")
}
