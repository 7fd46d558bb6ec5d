// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package version holds the build-time version string, overridden via
// -ldflags by the release build.
package version

// Version is set at build time with:
//
//	go build -ldflags "-X github.com/aws/cfn-teleport/internal/pkg/version.Version=v1.2.3"
var Version = "v0.0.0-dev"
