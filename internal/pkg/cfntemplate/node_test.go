// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cfntemplate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplate_WithoutResources(t *testing.T) {
	tpl := decodeOrFail(t, `
Resources:
  A:
    Type: AWS::S3::Bucket
  B:
    Type: AWS::S3::Bucket
`)
	trimmed := tpl.WithoutResources([]string{"A"})
	require.False(t, trimmed.HasResource("A"))
	require.True(t, trimmed.HasResource("B"))
	// Original is untouched.
	require.True(t, tpl.HasResource("A"))
}

func TestTemplate_WithResourcesFrom(t *testing.T) {
	src := decodeOrFail(t, `
Resources:
  Moving:
    Type: AWS::S3::Bucket
`)
	dst := decodeOrFail(t, `
Resources:
  Existing:
    Type: AWS::S3::Bucket
`)
	merged := dst.WithResourcesFrom(src, []string{"Moving"})

	require.True(t, merged.HasResource("Existing"))
	require.True(t, merged.HasResource("Moving"))
	require.False(t, dst.HasResource("Moving"))
}

func TestTemplate_WithResourcesFrom_CreatesResourcesSection(t *testing.T) {
	src := decodeOrFail(t, `
Resources:
  Moving:
    Type: AWS::S3::Bucket
`)
	dst := decodeOrFail(t, `
Parameters:
  P:
    Type: String
`)
	merged := dst.WithResourcesFrom(src, []string{"Moving"})
	require.True(t, merged.HasResource("Moving"))
}
