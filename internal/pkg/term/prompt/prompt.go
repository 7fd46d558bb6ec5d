// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package prompt wraps github.com/AlecAivazis/survey/v2 with the two
// interactions cfn-teleport's CLI needs: a yes/no confirmation and a
// single choice from a list (stack or resource names the collaborator
// fetched).
package prompt

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
)

// ErrEmptyOptions is returned by SelectOne when given no options to
// choose from.
var ErrEmptyOptions = errors.New("list of provided options is empty")

// Prompt asks a survey.Prompt and writes the answer into out; it's the
// seam tests substitute to script survey's interactive behavior.
type Prompt func(p survey.Prompt, out interface{}, opts ...survey.AskOpt) error

// New returns a Prompt that actually asks the user via survey.AskOne.
func New() Prompt {
	return survey.AskOne
}

// Confirm asks a yes/no question and returns the user's answer.
func (p Prompt) Confirm(message, help string) (bool, error) {
	var result bool
	err := p(&survey.Confirm{
		Message: message,
		Help:    help,
	}, &result, survey.WithValidator(survey.Required))
	if err != nil {
		return false, err
	}
	return result, nil
}

// SelectOne asks the user to choose one value from options.
func (p Prompt) SelectOne(message, help string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrEmptyOptions
	}
	var result string
	err := p(&survey.Select{
		Message: message,
		Help:    help,
		Options: options,
	}, &result, survey.WithValidator(survey.Required), survey.WithPageSize(10))
	if err != nil {
		return "", err
	}
	return result, nil
}
