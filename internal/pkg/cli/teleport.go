// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cli wires cfn-teleport's single command: move or rename
// CloudFormation resources across stacks without destroying the
// underlying physical resources.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	awscfn "github.com/aws/cfn-teleport/internal/pkg/aws/cloudformation"
	"github.com/aws/cfn-teleport/internal/pkg/aws/sessions"
	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
	"github.com/aws/cfn-teleport/internal/pkg/teleport"
	"github.com/aws/cfn-teleport/internal/pkg/term/color"
	"github.com/aws/cfn-teleport/internal/pkg/term/log"
	termprogress "github.com/aws/cfn-teleport/internal/pkg/term/progress"
	"github.com/aws/cfn-teleport/internal/pkg/term/prompt"
)

const (
	sourceFlag         = "source"
	targetFlag         = "target"
	resourceFlag       = "resource"
	yesFlag            = "yes"
	modeFlag           = "mode"
	outDirFlag         = "out-dir"
	exportFlag         = "export"
	migrationSpecFlag  = "migration-spec"
	sourceTemplateFlag = "source-template"
	targetTemplateFlag = "target-template"

	yesFlagDescription = "Skip confirmation prompts."
)

const fmtTeleportConfirmPrompt = "Proceed with %s?"

var errTeleportCancelled = errors.New("move cancelled - no changes made")

// teleportVars holds the raw, flag-backed inputs of a run.
type teleportVars struct {
	sourceStack      string
	targetStack      string
	resources        []string
	skipConfirmation bool
	mode             string
	outDir           string
	export           bool
	migrationSpec    string
	sourceTemplate   string
	targetTemplate   string
}

// teleportOpts carries teleportVars plus the dependencies and derived
// state Validate/Ask/Execute build up, mirroring job_delete.go's
// deleteJobVars/deleteJobOpts split.
type teleportOpts struct {
	teleportVars

	fs      afero.Fs
	collab  teleport.Collaborator
	spinner teleport.Progress
	prompt  prompt.Prompt

	kind    teleport.OperationKind
	mode    teleport.Mode
	mapping *teleport.Mapping

	source *cfntemplate.Template
	target *cfntemplate.Template
}

func newTeleportOpts(vars teleportVars) (*teleportOpts, error) {
	provider := sessions.ImmutableProvider()
	sess, err := provider.Default()
	if err != nil {
		return nil, fmt.Errorf("create default session: %w", err)
	}

	return &teleportOpts{
		teleportVars: vars,

		fs:      afero.NewOsFs(),
		collab:  awscfn.NewCollaborator(sess),
		spinner: termprogress.NewSpinner(),
		prompt:  prompt.New(),
	}, nil
}

// Validate checks the flag values that were provided. The source stack
// can still be picked interactively, so only Ask requires it.
func (o *teleportOpts) Validate() error {
	mode, err := teleport.ParseMode(o.teleportVars.mode)
	if err != nil {
		return err
	}
	o.mode = mode

	mapping, err := teleport.BuildMapping(o.fs, o.migrationSpec, o.resources)
	if err != nil {
		return err
	}
	o.mapping = mapping
	return nil
}

// Ask fills in the source stack if it wasn't given as a flag, loads
// both templates, checks the move is safe, and confirms the run.
func (o *teleportOpts) Ask() error {
	if err := o.askSourceStack(); err != nil {
		return err
	}
	if o.targetStack == "" {
		o.targetStack = o.sourceStack
	}
	o.kind = teleport.OperationKindFor(o.sourceStack, o.targetStack)
	if o.kind == teleport.SameStackRename {
		o.mode = teleport.Refactor
	}

	source, err := o.loadTemplate(o.sourceTemplate, o.sourceStack)
	if err != nil {
		return fmt.Errorf("load source template for %s: %w", o.sourceStack, err)
	}
	o.source = source

	if o.kind == teleport.CrossStackMove {
		target, err := o.loadTemplate(o.targetTemplate, o.targetStack)
		if err != nil {
			return fmt.Errorf("load target template for %s: %w", o.targetStack, err)
		}
		o.target = target
	}

	if err := teleport.Validate(o.source, o.target, o.mapping, o.kind, o.mode); err != nil {
		return err
	}
	return o.confirm()
}

func (o *teleportOpts) askSourceStack() error {
	if o.sourceStack != "" {
		return nil
	}
	if o.skipConfirmation {
		return errors.New("--source is required with --yes")
	}
	stacks, err := o.collab.ListStacks()
	if err != nil {
		return fmt.Errorf("list stacks: %w", err)
	}
	names := make([]string, 0, len(stacks))
	for _, s := range stacks {
		names = append(names, s.Name)
	}
	name, err := o.prompt.SelectOne(
		"Which stack holds the resources to move?",
		"The stack the --resource identifiers refer to.",
		names)
	if err != nil {
		return fmt.Errorf("select source stack: %w", err)
	}
	o.sourceStack = name
	return nil
}

func (o *teleportOpts) loadTemplate(overridePath, stack string) (*cfntemplate.Template, error) {
	if overridePath != "" {
		tpl, warning, err := teleport.LoadTemplate(o.fs, overridePath)
		if err != nil {
			return nil, err
		}
		o.warnUnsupportedTag(warning)
		return tpl, nil
	}
	body, err := o.collab.GetTemplate(stack)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	tpl, _, warning, err := cfntemplate.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	o.warnUnsupportedTag(warning)
	return tpl, nil
}

func (o *teleportOpts) warnUnsupportedTag(warning *cfntemplate.UnsupportedTagWarning) {
	if warning == nil {
		return
	}
	log.PrintWarningln(warning.Error())
}

// confirm asks for a go-ahead unless --yes or --export was given.
func (o *teleportOpts) confirm() error {
	if o.skipConfirmation || o.export {
		return nil
	}
	confirmed, err := o.prompt.Confirm(
		fmt.Sprintf(fmtTeleportConfirmPrompt, o.describe()),
		"This rewrites the affected stack templates in place; the underlying resources are not recreated.")
	if err != nil {
		return fmt.Errorf("move confirmation prompt: %w", err)
	}
	if !confirmed {
		return errTeleportCancelled
	}
	return nil
}

func (o *teleportOpts) describe() string {
	if o.kind == teleport.SameStackRename {
		return fmt.Sprintf("renaming %d resource(s) in %s", o.mapping.Len(), color.HighlightUserInput(o.sourceStack))
	}
	return fmt.Sprintf("moving %d resource(s) from %s to %s",
		o.mapping.Len(), color.HighlightUserInput(o.sourceStack), color.HighlightUserInput(o.targetStack))
}

// Execute builds the plan, exports it if requested, and otherwise
// drives it to completion via the execution driver.
func (o *teleportOpts) Execute() error {
	if o.kind == teleport.CrossStackMove && o.mode == teleport.Import {
		return o.executeImport()
	}
	return o.executeRefactor()
}

func (o *teleportOpts) executeRefactor() error {
	plan, err := teleport.BuildRefactorPlan(o.sourceStack, o.source, o.targetStack, o.target, o.mapping, o.kind)
	if err != nil {
		return err
	}

	if o.export {
		_, err := teleport.ExportTemplates(o.fs, o.outDir, o.exportOp(), o.timestamp(), teleport.RefactorArtifacts(plan), false, cfntemplate.FormatYAML)
		return err
	}

	ctx := context.Background()
	if err := teleport.ExecuteRefactorPlan(ctx, o.collab, plan, teleport.DefaultPollConfig, o.spinner); err != nil {
		o.onFailure(teleport.RefactorArtifacts(plan), err)
		return err
	}
	log.PrintSuccessln("resources moved")
	return nil
}

func (o *teleportOpts) executeImport() error {
	identifiers, err := o.resourceIdentifiers()
	if err != nil {
		return err
	}
	plan, err := teleport.BuildImportPlan(o.sourceStack, o.source, o.targetStack, o.target, o.mapping, identifiers)
	if err != nil {
		return err
	}

	if o.export {
		_, err := teleport.ExportTemplates(o.fs, o.outDir, teleport.OpImport, o.timestamp(), teleport.ImportArtifacts(plan), false, cfntemplate.FormatYAML)
		return err
	}

	ctx := context.Background()
	if err := teleport.ExecuteImportPlan(ctx, o.collab, plan, teleport.DefaultPollConfig, o.spinner); err != nil {
		o.onFailure(teleport.ImportArtifacts(plan), err)
		return err
	}
	log.PrintSuccessln("resources moved")
	return nil
}

// resourceIdentifiers fetches each moved resource's physical id from
// the source stack's resource listing, keyed by its new logical id.
func (o *teleportOpts) resourceIdentifiers() (map[string]string, error) {
	resources, err := o.collab.ListResources(o.sourceStack)
	if err != nil {
		return nil, fmt.Errorf("list resources for %s: %w", o.sourceStack, err)
	}
	byOld := make(map[string]string, len(resources))
	for _, r := range resources {
		byOld[r.LogicalID] = r.PhysicalID
	}
	identifiers := make(map[string]string, o.mapping.Len())
	for _, e := range o.mapping.Entries() {
		id, ok := byOld[e.Old]
		if !ok {
			return nil, fmt.Errorf("resource %s not found in stack %s", e.Old, o.sourceStack)
		}
		identifiers[e.New] = id
	}
	return identifiers, nil
}

func (o *teleportOpts) onFailure(artifacts []teleport.Artifact, execErr error) {
	ts := o.timestamp()
	if _, err := teleport.ExportTemplates(o.fs, o.outDir, o.exportOp(), ts, artifacts, true, cfntemplate.FormatYAML); err != nil {
		log.PrintErrorf("save failure templates: %v\n", err)
	}
	path, err := teleport.WriteErrorContext(o.fs, o.outDir, o.sourceStack, teleport.ErrorContext{
		Op:          o.exportOp(),
		SourceStack: o.sourceStack,
		TargetStack: o.targetStack,
		Mapping:     o.mapping.Entries(),
		Err:         execErr,
		Timestamp:   ts,
	})
	if err != nil {
		log.PrintErrorf("save error context: %v\n", err)
		return
	}
	log.PrintErrorf("%v\nsaved templates and diagnostics to %s\n", execErr, color.HighlightCode(path))
	if teleport.IsPartialFailure(execErr) {
		log.PrintWarningln("the moving resources left the source stack before this failure; recover using the saved templates")
	}
}

func (o *teleportOpts) exportOp() teleport.Op {
	if o.kind == teleport.SameStackRename {
		return teleport.OpRename
	}
	if o.mode == teleport.Import {
		return teleport.OpImport
	}
	return teleport.OpRefactor
}

func (o *teleportOpts) timestamp() string {
	return time.Now().Format("20060102-150405")
}

// BuildTeleportCmd builds cfn-teleport's single root command.
func BuildTeleportCmd() *cobra.Command {
	vars := teleportVars{}
	var opts *teleportOpts

	cmd := &cobra.Command{
		Use:   "cfn-teleport",
		Short: "Move or rename CloudFormation resources across stacks without recreating them.",
		Example: `
  Rename a resource within a single stack.
  /code $ cfn-teleport --source my-stack --resource OldBucket:NewBucket

  Move a resource to another stack using the atomic Refactor API.
  /code $ cfn-teleport --source my-stack --target other-stack --resource SharedQueue

  Preview the templates a move would submit, without executing it.
  /code $ cfn-teleport --source my-stack --resource OldBucket:NewBucket --export --out-dir ./plan`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			o, err := newTeleportOpts(vars)
			if err != nil {
				return err
			}
			opts = o
			return opts.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Ask(); err != nil {
				return err
			}
			return opts.Execute()
		},
	}

	cmd.SetOut(log.OutputWriter)
	cmd.SetErr(log.DiagnosticWriter)

	flags := cmd.Flags()
	flags.StringVar(&vars.sourceStack, sourceFlag, "", "Source stack name.")
	flags.StringVar(&vars.targetStack, targetFlag, "", "Target stack name (defaults to --source for a same-stack rename).")
	flags.StringArrayVar(&vars.resources, resourceFlag, nil, "Resource mapping entry OLD[:NEW]; repeatable.")
	flags.BoolVar(&vars.skipConfirmation, yesFlag, false, yesFlagDescription)
	flags.StringVar(&vars.mode, modeFlag, "", `Plan type for a cross-stack move: "refactor" or "import".`)
	flags.StringVar(&vars.outDir, outDirFlag, ".", "Directory for exported templates and diagnostics.")
	flags.BoolVar(&vars.export, exportFlag, false, "Build the plan and write templates to disk without executing it.")
	flags.StringVar(&vars.migrationSpec, migrationSpecFlag, "", "Path to a migration spec file mapping old resource ids to new ones.")
	flags.StringVar(&vars.sourceTemplate, sourceTemplateFlag, "", "Load the source template from disk instead of fetching it.")
	flags.StringVar(&vars.targetTemplate, targetTemplateFlag, "", "Load the target template from disk instead of fetching it.")

	return cmd
}
