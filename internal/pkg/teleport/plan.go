// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"fmt"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
)

// Plan is a closed variant: *RefactorPlan and *ImportPlan are its only
// implementations, each carrying only the fields its mode needs.
type Plan interface {
	isPlan()
}

// ResourceMapping is one entry of a Refactor Plan's resource-mapping
// set: (source_stack, old_id) -> (target_stack, new_id).
type ResourceMapping struct {
	SourceStack string
	OldID       string
	TargetStack string
	NewID       string
}

// StackDefinition carries one affected stack's final desired template.
type StackDefinition struct {
	StackName string
	Template  *cfntemplate.Template
}

// RefactorPlan is the atomic plan: an unordered resource-mapping set
// plus the final desired template of every affected stack. The
// provider validates all changes before modifying any stack and rolls
// back on any failure.
type RefactorPlan struct {
	ResourceMappings []ResourceMapping
	StackDefinitions []StackDefinition
}

func (*RefactorPlan) isPlan() {}

// ImportPlan is the four-template, four-phase legacy plan.
type ImportPlan struct {
	SourceStack string
	TargetStack string

	// SourceRetained is template 1: moving resources annotated with a
	// retention policy, still in the source stack.
	SourceRetained *cfntemplate.Template
	// SourceRemoved is template 2: moving resources removed from source.
	SourceRemoved *cfntemplate.Template
	// TargetWithPolicy is template 3: target stack with moving resources
	// added, each carrying the retention policy, used for the import
	// changeset.
	TargetWithPolicy *cfntemplate.Template
	// TargetFinal is template 4: target stack with the retention policy
	// cleared on the newly-added resources.
	TargetFinal *cfntemplate.Template

	// ResourceIdentifiers maps each moved resource's new logical id to
	// the physical identifier the import changeset must bind it to.
	ResourceIdentifiers map[string]string
}

func (*ImportPlan) isPlan() {}

const retainPolicy = "Retain"

// BuildRefactorPlan rewrites the affected templates and pairs them
// with the resource-mapping set the Refactor API consumes.
func BuildRefactorPlan(sourceStack string, source *cfntemplate.Template, targetStack string, target *cfntemplate.Template, mapping *Mapping, kind OperationKind) (*RefactorPlan, error) {
	rewrittenSource := cfntemplate.Rewrite(source, mapping.AsMap())
	movedNewIDs := mapping.NewNames()

	var defs []StackDefinition
	switch kind {
	case SameStackRename:
		defs = []StackDefinition{{StackName: sourceStack, Template: rewrittenSource}}
	case CrossStackMove:
		if target == nil {
			return nil, fmt.Errorf("cross-stack refactor requires a target template")
		}
		sourceFinal := rewrittenSource.WithoutResources(movedNewIDs)
		targetFinal := target.WithResourcesFrom(rewrittenSource, movedNewIDs)
		defs = []StackDefinition{
			{StackName: sourceStack, Template: sourceFinal},
			{StackName: targetStack, Template: targetFinal},
		}
	}

	resourceTargetStack := targetStack
	if kind == SameStackRename {
		resourceTargetStack = sourceStack
	}
	resourceMappings := make([]ResourceMapping, 0, mapping.Len())
	for _, e := range mapping.Entries() {
		resourceMappings = append(resourceMappings, ResourceMapping{
			SourceStack: sourceStack,
			OldID:       e.Old,
			TargetStack: resourceTargetStack,
			NewID:       e.New,
		})
	}

	return &RefactorPlan{ResourceMappings: resourceMappings, StackDefinitions: defs}, nil
}

// BuildImportPlan produces the four templates the legacy import path
// steps through (cross-stack only). resourceIdentifiers supplies each moved resource's physical id
// (fetched from the source stack's resource listing before planning),
// keyed by the resource's *new* logical identifier.
func BuildImportPlan(sourceStack string, source *cfntemplate.Template, targetStack string, target *cfntemplate.Template, mapping *Mapping, resourceIdentifiers map[string]string) (*ImportPlan, error) {
	if target == nil {
		return nil, fmt.Errorf("import plan requires a target template")
	}
	movedOldIDs := mapping.OldNames()
	movedNewIDs := mapping.NewNames()

	sourceRetained, _ := withRetentionPolicy(source.Clone(), movedOldIDs)
	sourceRemoved := source.WithoutResources(movedOldIDs)

	rewrittenSource := cfntemplate.Rewrite(source, mapping.AsMap())
	targetWithMoved := target.WithResourcesFrom(rewrittenSource, movedNewIDs)
	targetWithPolicy, added := withRetentionPolicy(targetWithMoved, movedNewIDs)
	targetFinal := clearRetentionPolicy(targetWithPolicy.Clone(), added)

	return &ImportPlan{
		SourceStack:         sourceStack,
		TargetStack:         targetStack,
		SourceRetained:      sourceRetained,
		SourceRemoved:       sourceRemoved,
		TargetWithPolicy:    targetWithPolicy,
		TargetFinal:         targetFinal,
		ResourceIdentifiers: resourceIdentifiers,
	}, nil
}

// withRetentionPolicy sets DeletionPolicy to Retain on every named
// resource that doesn't already declare one -- an existing explicit
// policy is never overwritten -- and returns the subset of names
// it actually added a policy to, so a later phase can clear only that.
func withRetentionPolicy(t *cfntemplate.Template, names []string) (*cfntemplate.Template, map[string]bool) {
	added := make(map[string]bool)
	for _, name := range names {
		res := t.Resource(name)
		if res == nil || cfntemplate.HasDeletionPolicy(res) {
			continue
		}
		cfntemplate.SetDeletionPolicy(res, retainPolicy)
		added[name] = true
	}
	return t, added
}

// clearRetentionPolicy removes the DeletionPolicy this package itself
// added during the import's template-3 phase, leaving alone any
// DeletionPolicy that already existed on a resource before the move
// began.
func clearRetentionPolicy(t *cfntemplate.Template, added map[string]bool) *cfntemplate.Template {
	for name := range added {
		if res := t.Resource(name); res != nil {
			cfntemplate.ClearDeletionPolicy(res)
		}
	}
	return t
}
