// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package main contains cfn-teleport's root command.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/aws/cfn-teleport/internal/pkg/cli"
	"github.com/aws/cfn-teleport/internal/pkg/term/color"
	"github.com/aws/cfn-teleport/internal/pkg/term/log"
	"github.com/aws/cfn-teleport/internal/pkg/version"
)

type actionRecommender interface {
	RecommendActions() string
}

type exitCodeError interface {
	ExitCode() int
}

func init() {
	color.DisableColorBasedOnEnvVar()
}

func main() {
	cmd := buildRootCmd()
	if err := cmd.Execute(); err != nil {
		var ac actionRecommender
		var exitCodeErr exitCodeError

		if errors.As(err, &ac) {
			log.Infoln(ac.RecommendActions())
		}
		if errors.As(err, &exitCodeErr) {
			log.Infoln(err.Error())
			os.Exit(exitCodeErr.ExitCode())
		}
		log.Errorln(err.Error())
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := cli.BuildTeleportCmd()
	cmd.Version = version.Version
	cmd.SetVersionTemplate("cfn-teleport version: {{.Version}}\n")
	return cmd
}
