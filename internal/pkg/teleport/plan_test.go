// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
)

func TestBuildRefactorPlan_SameStackRename(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  RenameBucket:
    Type: AWS::S3::Bucket
Outputs:
  BucketOut:
    Value:
      Ref: RenameBucket
`)
	mapping := mappingOf(t, "RenameBucket:RenamedBucket")

	plan, err := BuildRefactorPlan("Stack", source, "Stack", nil, mapping, SameStackRename)
	require.NoError(t, err)
	require.Len(t, plan.StackDefinitions, 1)
	require.True(t, plan.StackDefinitions[0].Template.HasResource("RenamedBucket"))
	require.Contains(t, cfntemplate.Edges(plan.StackDefinitions[0].Template)[cfntemplate.OutputsReferrer], "RenamedBucket")
	require.Equal(t, []ResourceMapping{{SourceStack: "Stack", OldID: "RenameBucket", TargetStack: "Stack", NewID: "RenamedBucket"}}, plan.ResourceMappings)
}

func TestBuildRefactorPlan_CrossStackMove(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  Moving:
    Type: AWS::S3::Bucket
  Staying:
    Type: AWS::S3::BucketPolicy
`)
	target := parseTemplate(t, `
Resources:
  Existing:
    Type: AWS::S3::Bucket
`)
	mapping := mappingOf(t, "Moving")

	plan, err := BuildRefactorPlan("Source", source, "Target", target, mapping, CrossStackMove)
	require.NoError(t, err)
	require.Len(t, plan.StackDefinitions, 2)

	var sourceDef, targetDef StackDefinition
	for _, d := range plan.StackDefinitions {
		switch d.StackName {
		case "Source":
			sourceDef = d
		case "Target":
			targetDef = d
		}
	}
	require.False(t, sourceDef.Template.HasResource("Moving"))
	require.True(t, sourceDef.Template.HasResource("Staying"))
	require.True(t, targetDef.Template.HasResource("Moving"))
	require.True(t, targetDef.Template.HasResource("Existing"))
}

func TestBuildImportPlan_RetentionPolicyLifecycle(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  Moving:
    Type: AWS::S3::Bucket
  Staying:
    Type: AWS::S3::BucketPolicy
`)
	target := parseTemplate(t, `Resources: {}`)
	mapping := mappingOf(t, "Moving")

	plan, err := BuildImportPlan("Source", source, "Target", target, mapping, map[string]string{"Moving": "bucket-physical-id"})
	require.NoError(t, err)

	require.True(t, cfntemplate.HasDeletionPolicy(plan.SourceRetained.Resource("Moving")))
	require.False(t, plan.SourceRemoved.HasResource("Moving"))
	require.True(t, cfntemplate.HasDeletionPolicy(plan.TargetWithPolicy.Resource("Moving")))
	require.False(t, cfntemplate.HasDeletionPolicy(plan.TargetFinal.Resource("Moving")))
	require.Equal(t, "bucket-physical-id", plan.ResourceIdentifiers["Moving"])
}

func TestBuildImportPlan_PreservesExistingExplicitPolicy(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  Moving:
    Type: AWS::S3::Bucket
    DeletionPolicy: Snapshot
`)
	target := parseTemplate(t, `Resources: {}`)
	mapping := mappingOf(t, "Moving")

	plan, err := BuildImportPlan("Source", source, "Target", target, mapping, nil)
	require.NoError(t, err)

	// The import's own Retain policy must never overwrite a pre-existing
	// explicit policy, and clearing must leave that original policy alone.
	out, err := cfntemplate.Encode(plan.TargetFinal, cfntemplate.FormatYAML)
	require.NoError(t, err)
	require.Contains(t, string(out), "Snapshot")
}
