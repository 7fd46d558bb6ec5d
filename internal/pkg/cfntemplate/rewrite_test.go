// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cfntemplate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewrite_PureRenameViaOutputRef(t *testing.T) {
	tpl := decodeOrFail(t, `
Resources:
  RenameBucket:
    Type: AWS::S3::Bucket
Outputs:
  BucketOut:
    Value:
      Ref: RenameBucket
`)
	rewritten := Rewrite(tpl, map[string]string{"RenameBucket": "RenamedBucket"})

	require.True(t, rewritten.HasResource("RenamedBucket"))
	require.False(t, rewritten.HasResource("RenameBucket"))
	require.Contains(t, Edges(rewritten)[OutputsReferrer], "RenamedBucket")
}

func TestRewrite_GetAttDottedFormPreserved(t *testing.T) {
	tpl := decodeOrFail(t, `
Resources:
  RenameTable:
    Type: AWS::DynamoDB::Table
  Consumer:
    Type: AWS::Lambda::Function
    Properties:
      Arn:
        Fn::GetAtt: "RenameTable.Arn"
`)
	rewritten := Rewrite(tpl, map[string]string{"RenameTable": "RenamedTable"})

	out, err := Encode(rewritten, FormatYAML)
	require.NoError(t, err)
	require.Contains(t, string(out), "RenamedTable.Arn")
	require.NotContains(t, string(out), "RenameTable.Arn")
}

func TestRewrite_EscapePreservation(t *testing.T) {
	tpl := decodeOrFail(t, `
Resources:
  Foo:
    Type: AWS::S3::Bucket
  Fn:
    Type: AWS::Lambda::Function
    Properties:
      Name:
        Fn::Sub: "literal-${!Foo}-suffix"
`)
	rewritten := Rewrite(tpl, map[string]string{"Foo": "Bar"})

	out, err := Encode(rewritten, FormatYAML)
	require.NoError(t, err)
	require.Contains(t, string(out), "${!Foo}")
}

func TestRewrite_ShadowedLocalUntouched(t *testing.T) {
	tpl := decodeOrFail(t, `
Resources:
  Bucket:
    Type: AWS::S3::Bucket
  Fn:
    Type: AWS::Lambda::Function
    Properties:
      Name:
        Fn::Sub:
          - "${Bucket}"
          - Bucket: "literal-value"
`)
	rewritten := Rewrite(tpl, map[string]string{"Bucket": "RenamedBucket"})

	out, err := Encode(rewritten, FormatYAML)
	require.NoError(t, err)
	// The local variable named "Bucket" shadows the resource, so the
	// interpolation is untouched even though the resource itself renamed.
	require.Contains(t, string(out), "${Bucket}")
	require.Contains(t, string(out), "RenamedBucket")
}

func TestRewrite_DependsOnRenamed(t *testing.T) {
	tpl := decodeOrFail(t, `
Resources:
  A:
    Type: AWS::S3::Bucket
    DependsOn: B
  B:
    Type: AWS::S3::Bucket
`)
	rewritten := Rewrite(tpl, map[string]string{"B": "RenamedB"})
	edges := Edges(rewritten)
	require.Contains(t, edges["A"], "RenamedB")
}

func TestRewrite_IdentityIsSemanticallyEquivalent(t *testing.T) {
	tpl := decodeOrFail(t, `
Resources:
  A:
    Type: AWS::S3::Bucket
    Properties:
      Name:
        Ref: A
`)
	identity := map[string]string{"A": "A"}
	rewritten := Rewrite(tpl, identity)

	before, err := Encode(tpl, FormatYAML)
	require.NoError(t, err)
	after, err := Encode(rewritten, FormatYAML)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}
