// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package teleport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aws/cfn-teleport/internal/pkg/cfntemplate"
)

func parseTemplate(t *testing.T, body string) *cfntemplate.Template {
	t.Helper()
	tpl, _, _, err := cfntemplate.Decode([]byte(body))
	require.NoError(t, err)
	return tpl
}

func mappingOf(t *testing.T, pairs ...string) *Mapping {
	t.Helper()
	m := NewMapping()
	for _, p := range pairs {
		old, new, err := ParseResourceFlag(p)
		require.NoError(t, err)
		m.Set(old, new)
	}
	return m
}

func TestValidate_CrossStackMoveBlockedByOutputReference(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  MyBucket:
    Type: AWS::S3::Bucket
Outputs:
  X:
    Value:
      Ref: MyBucket
`)
	target := parseTemplate(t, `
Resources: {}
`)
	mapping := mappingOf(t, "MyBucket")

	err := Validate(source, target, mapping, CrossStackMove, Refactor)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, containsRule(verr.Violations, "output-bound"))
	require.Contains(t, verr.Error(), "MyBucket")
}

func TestValidate_OutboundDependencyBlocksPartialMove(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  Instance:
    Type: AWS::EC2::Instance
    Properties:
      SecurityGroup:
        Ref: SecurityGroup
  SecurityGroup:
    Type: AWS::EC2::SecurityGroup
`)
	target := parseTemplate(t, `Resources: {}`)

	t.Run("moving Instance alone is rejected", func(t *testing.T) {
		mapping := mappingOf(t, "Instance")
		err := Validate(source, target, mapping, CrossStackMove, Refactor)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.True(t, containsRule(verr.Violations, "outbound-to-staying"))
	})

	t.Run("moving both together is accepted", func(t *testing.T) {
		mapping := mappingOf(t, "Instance", "SecurityGroup")
		err := Validate(source, target, mapping, CrossStackMove, Refactor)
		require.NoError(t, err)
	})
}

func TestValidate_InboundFromStaying(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  Staying:
    Type: AWS::S3::BucketPolicy
    Properties:
      Bucket:
        Ref: Moving
  Moving:
    Type: AWS::S3::Bucket
`)
	target := parseTemplate(t, `Resources: {}`)
	mapping := mappingOf(t, "Moving")

	err := Validate(source, target, mapping, CrossStackMove, Refactor)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, containsRule(verr.Violations, "inbound-from-staying"))
}

func TestValidate_SameStackDegenerateRejectsAllIdentity(t *testing.T) {
	source := parseTemplate(t, `Resources: {A: {Type: AWS::S3::Bucket}}`)
	mapping := mappingOf(t, "A")

	err := Validate(source, source, mapping, SameStackRename, Refactor)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, containsRule(verr.Violations, "same-stack-degenerate"))
}

func TestValidate_ImageCollision(t *testing.T) {
	source := parseTemplate(t, `
Resources:
  A:
    Type: AWS::S3::Bucket
  B:
    Type: AWS::S3::Bucket
`)
	mapping := mappingOf(t, "A:B")

	err := Validate(source, source, mapping, SameStackRename, Refactor)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, containsRule(verr.Violations, "image-collision"))
}

func TestValidate_ParameterDependency_ImportBlocksUnconditionally(t *testing.T) {
	source := parseTemplate(t, `
Parameters:
  Env:
    Type: String
Resources:
  Moving:
    Type: AWS::S3::Bucket
    Properties:
      Name:
        Ref: Env
`)
	target := parseTemplate(t, `
Parameters:
  Env:
    Type: String
Resources: {}
`)
	mapping := mappingOf(t, "Moving")

	err := Validate(source, target, mapping, CrossStackMove, Import)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, containsRule(verr.Violations, "parameter-dependency"))
}

func TestValidate_ParameterDependency_RefactorAllowsMatchingTargetParam(t *testing.T) {
	source := parseTemplate(t, `
Parameters:
  Env:
    Type: String
Resources:
  Moving:
    Type: AWS::S3::Bucket
    Properties:
      Name:
        Ref: Env
`)
	target := parseTemplate(t, `
Parameters:
  Env:
    Type: String
Resources: {}
`)
	mapping := mappingOf(t, "Moving")
	require.NoError(t, Validate(source, target, mapping, CrossStackMove, Refactor))
}

func TestValidate_ParameterDependency_RefactorRejectsMissingTargetParam(t *testing.T) {
	source := parseTemplate(t, `
Parameters:
  Env:
    Type: String
Resources:
  Moving:
    Type: AWS::S3::Bucket
    Properties:
      Name:
        Ref: Env
`)
	target := parseTemplate(t, `Resources: {}`)
	mapping := mappingOf(t, "Moving")

	err := Validate(source, target, mapping, CrossStackMove, Refactor)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, containsRule(verr.Violations, "parameter-dependency"))
}

func containsRule(violations []Violation, rule string) bool {
	for _, v := range violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
