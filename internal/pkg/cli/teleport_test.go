// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
	"github.com/aws/cfn-teleport/internal/pkg/teleport"
	"github.com/aws/cfn-teleport/internal/pkg/term/prompt"
)

// fakeCollaborator scripts the provider's behavior for a run.
type fakeCollaborator struct {
	stacks    []teleport.StackSummary
	templates map[string]string // stack -> raw body returned by GetTemplate
	resources map[string][]teleport.ResourceSummary

	refactorStatuses  []teleport.RefactorStatus
	stackStatuses     map[string][]teleport.StackStatus
	changeSetStatuses []teleport.ChangeSetStatus

	changeSetCreateErr error
}

func (f *fakeCollaborator) ListStacks() ([]teleport.StackSummary, error) {
	return f.stacks, nil
}

func (f *fakeCollaborator) ListResources(stack string) ([]teleport.ResourceSummary, error) {
	return f.resources[stack], nil
}

func (f *fakeCollaborator) GetTemplate(stack string) ([]byte, error) {
	body, ok := f.templates[stack]
	if !ok {
		return nil, errors.New("stack " + stack + " not found")
	}
	return []byte(body), nil
}

func (f *fakeCollaborator) ValidateTemplate([]byte) error { return nil }

func (f *fakeCollaborator) RefactorSubmit(*teleport.RefactorPlan) (string, error) {
	return "op-1", nil
}

func (f *fakeCollaborator) RefactorPoll(string) (teleport.RefactorStatus, error) {
	if len(f.refactorStatuses) == 0 {
		return "", errors.New("no more refactor statuses queued")
	}
	s := f.refactorStatuses[0]
	f.refactorStatuses = f.refactorStatuses[1:]
	return s, nil
}

func (f *fakeCollaborator) RefactorExecute(string) error { return nil }

func (f *fakeCollaborator) RefactorActions(string) ([]string, error) { return nil, nil }

func (f *fakeCollaborator) StackUpdate(string, *cfntemplate.Template) error { return nil }

func (f *fakeCollaborator) StackStatus(stack string) (teleport.StackStatus, error) {
	queue := f.stackStatuses[stack]
	if len(queue) == 0 {
		return "", errors.New("no more stack statuses queued for " + stack)
	}
	s := queue[0]
	f.stackStatuses[stack] = queue[1:]
	return s, nil
}

func (f *fakeCollaborator) ChangeSetCreateImport(string, *cfntemplate.Template, map[string]string) (string, error) {
	if f.changeSetCreateErr != nil {
		return "", f.changeSetCreateErr
	}
	return "cs-1", nil
}

func (f *fakeCollaborator) ChangeSetDescribe(string) (teleport.ChangeSetStatus, error) {
	if len(f.changeSetStatuses) == 0 {
		return "", errors.New("no more changeset statuses queued")
	}
	s := f.changeSetStatuses[0]
	f.changeSetStatuses = f.changeSetStatuses[1:]
	return s, nil
}

func (f *fakeCollaborator) ChangeSetExecute(string) error { return nil }

var _ teleport.Collaborator = (*fakeCollaborator)(nil)

// scriptedPrompt answers every Confirm with confirm and every Select
// with the first option.
func scriptedPrompt(confirm bool) prompt.Prompt {
	return func(p survey.Prompt, out interface{}, _ ...survey.AskOpt) error {
		switch q := p.(type) {
		case *survey.Confirm:
			*out.(*bool) = confirm
		case *survey.Select:
			*out.(*string) = q.Options[0]
		default:
			return errors.New("unexpected prompt type")
		}
		return nil
	}
}

const sourceBody = `
Resources:
  RenameBucket:
    Type: AWS::S3::Bucket
`

func testOpts(vars teleportVars, collab *fakeCollaborator) *teleportOpts {
	return &teleportOpts{
		teleportVars: vars,
		fs:           afero.NewMemMapFs(),
		collab:       collab,
		prompt:       scriptedPrompt(true),
	}
}

func TestTeleportOpts_Validate(t *testing.T) {
	t.Run("rejects an unknown mode", func(t *testing.T) {
		o := testOpts(teleportVars{
			sourceStack: "Stack",
			resources:   []string{"A:B"},
			mode:        "sideways",
		}, &fakeCollaborator{})
		require.ErrorContains(t, o.Validate(), "unknown mode")
	})

	t.Run("requires at least one resource", func(t *testing.T) {
		o := testOpts(teleportVars{sourceStack: "Stack"}, &fakeCollaborator{})
		require.ErrorContains(t, o.Validate(), "no resources specified")
	})
}

func TestTeleportOpts_Ask(t *testing.T) {
	t.Run("requires a source stack when prompts are skipped", func(t *testing.T) {
		o := testOpts(teleportVars{
			resources:        []string{"RenameBucket:RenamedBucket"},
			skipConfirmation: true,
		}, &fakeCollaborator{})
		require.NoError(t, o.Validate())
		require.ErrorContains(t, o.Ask(), "--source is required")
	})

	t.Run("picks the source stack interactively when the flag is absent", func(t *testing.T) {
		o := testOpts(teleportVars{
			resources: []string{"RenameBucket:RenamedBucket"},
		}, &fakeCollaborator{
			stacks:    []teleport.StackSummary{{Name: "Stack", Status: "UPDATE_COMPLETE"}},
			templates: map[string]string{"Stack": sourceBody},
		})
		require.NoError(t, o.Validate())
		require.NoError(t, o.Ask())
		require.Equal(t, "Stack", o.sourceStack)
	})

	t.Run("same-stack run forces refactor even when import is asked for", func(t *testing.T) {
		o := testOpts(teleportVars{
			sourceStack:      "Stack",
			resources:        []string{"RenameBucket:RenamedBucket"},
			mode:             "import",
			skipConfirmation: true,
		}, &fakeCollaborator{templates: map[string]string{"Stack": sourceBody}})
		require.NoError(t, o.Validate())
		require.NoError(t, o.Ask())
		require.Equal(t, teleport.SameStackRename, o.kind)
		require.Equal(t, teleport.Refactor, o.mode)
	})

	t.Run("loads the source template from disk instead of the provider", func(t *testing.T) {
		o := testOpts(teleportVars{
			sourceStack:      "Stack",
			resources:        []string{"RenameBucket:RenamedBucket"},
			sourceTemplate:   "/in/source.yml",
			skipConfirmation: true,
		}, &fakeCollaborator{}) // GetTemplate would fail; the file must win.
		require.NoError(t, afero.WriteFile(o.fs, "/in/source.yml", []byte(sourceBody), 0o644))
		require.NoError(t, o.Validate())
		require.NoError(t, o.Ask())
		require.True(t, o.source.HasResource("RenameBucket"))
	})

	t.Run("surfaces validator violations before any remote mutation", func(t *testing.T) {
		o := testOpts(teleportVars{
			sourceStack:      "Stack",
			resources:        []string{"RenameBucket"},
			skipConfirmation: true,
		}, &fakeCollaborator{templates: map[string]string{"Stack": sourceBody}})
		require.NoError(t, o.Validate())
		err := o.Ask()
		var verr *teleport.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("declining the confirmation cancels the run", func(t *testing.T) {
		o := testOpts(teleportVars{
			sourceStack: "Stack",
			resources:   []string{"RenameBucket:RenamedBucket"},
		}, &fakeCollaborator{templates: map[string]string{"Stack": sourceBody}})
		o.prompt = scriptedPrompt(false)
		require.NoError(t, o.Validate())
		require.ErrorIs(t, o.Ask(), errTeleportCancelled)
	})
}

func TestTeleportOpts_Execute_Export(t *testing.T) {
	o := testOpts(teleportVars{
		sourceStack: "Stack",
		resources:   []string{"RenameBucket:RenamedBucket"},
		export:      true,
		outDir:      "/out",
	}, &fakeCollaborator{templates: map[string]string{"Stack": sourceBody}})
	require.NoError(t, o.Validate())
	require.NoError(t, o.Ask())
	require.NoError(t, o.Execute())

	names := dirNames(t, o.fs, "/out")
	require.Len(t, names, 1)
	require.True(t, strings.HasPrefix(names[0], "Stack-rename-refactored-"))
}

func TestTeleportOpts_Execute_RefactorSuccess(t *testing.T) {
	collab := &fakeCollaborator{
		templates: map[string]string{"Stack": sourceBody},
		refactorStatuses: []teleport.RefactorStatus{
			teleport.RefactorCreateComplete,
			teleport.RefactorExecuteComplete,
		},
	}
	o := testOpts(teleportVars{
		sourceStack:      "Stack",
		resources:        []string{"RenameBucket:RenamedBucket"},
		outDir:           "/out",
		skipConfirmation: true,
	}, collab)
	require.NoError(t, o.Validate())
	require.NoError(t, o.Ask())
	require.NoError(t, o.Execute())

	// Nothing is exported on success unless --export was given.
	require.Empty(t, dirNames(t, o.fs, "/out"))
}

func TestTeleportOpts_Execute_ImportPartialFailureSavesArtifacts(t *testing.T) {
	// The import changeset fails after the source-side removal; the run
	// must save the four templates with the error prefix plus a context
	// sidecar naming the stacks, the mapping, and the error.
	collab := &fakeCollaborator{
		templates: map[string]string{
			"Source": sourceBody,
			"Target": "Resources: {}\n",
		},
		resources: map[string][]teleport.ResourceSummary{
			"Source": {{LogicalID: "RenameBucket", Type: "AWS::S3::Bucket", PhysicalID: "bucket-1"}},
		},
		stackStatuses: map[string][]teleport.StackStatus{
			"Source": {teleport.StackUpdateComplete, teleport.StackUpdateComplete},
		},
		changeSetCreateErr: errors.New("import changeset rejected"),
	}
	o := testOpts(teleportVars{
		sourceStack:      "Source",
		targetStack:      "Target",
		resources:        []string{"RenameBucket"},
		mode:             "import",
		outDir:           "/out",
		skipConfirmation: true,
	}, collab)
	require.NoError(t, o.Validate())
	require.NoError(t, o.Ask())

	err := o.Execute()
	require.Error(t, err)
	require.True(t, teleport.IsPartialFailure(err))

	names := dirNames(t, o.fs, "/out")
	require.Len(t, names, 5) // four templates plus the context sidecar.
	var sidecar string
	for _, name := range names {
		require.Contains(t, name, "-error-")
		if strings.HasSuffix(name, ".txt") {
			sidecar = name
		}
	}
	require.Contains(t, sidecar, "Source-error-import-context-")

	body, readErr := afero.ReadFile(o.fs, "/out/"+sidecar)
	require.NoError(t, readErr)
	require.Contains(t, string(body), "source stack: Source")
	require.Contains(t, string(body), "target stack: Target")
	require.Contains(t, string(body), "RenameBucket -> RenameBucket")
	require.Contains(t, string(body), "import changeset rejected")
}

func dirNames(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		require.NoError(t, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}
