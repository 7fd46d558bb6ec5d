// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package color renders terminal output, honoring the user's COLOR
// environment preference for both fatih/color and survey prompts.
package color

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2/core"
	"github.com/fatih/color"
)

const colorEnvVar = "COLOR"

// lookupEnv is swapped out in tests.
var lookupEnv = os.LookupEnv

// DisableColorBasedOnEnvVar turns color off (or explicitly on) for both
// this package's helpers and survey's prompts, based on the COLOR
// environment variable: "false" disables, "true" forces on, unset
// leaves fatih/color's own terminal detection in charge.
func DisableColorBasedOnEnvVar() {
	v, ok := lookupEnv(colorEnvVar)
	if !ok {
		core.DisableColor = color.NoColor
		return
	}
	enable, err := strconv.ParseBool(v)
	if err != nil {
		core.DisableColor = color.NoColor
		return
	}
	color.NoColor = !enable
	core.DisableColor = !enable
}

// HighlightUserInput highlights a value the user typed (flag value,
// logical identifier) so it stands out in a diagnostic message.
func HighlightUserInput(s string) string {
	return color.New(color.FgHiCyan).Sprint(s)
}

// HighlightCode highlights an inline command or code snippet a
// diagnostic recommends running.
func HighlightCode(s string) string {
	return color.New(color.FgHiBlack).Sprintf("`%s`", s)
}

// HighlightCodeBlock highlights a multi-line command or template
// snippet a diagnostic recommends inspecting.
func HighlightCodeBlock(s string) string {
	return color.New(color.FgHiBlack).Sprint(s)
}

// Emphasize bolds a value for emphasis without implying it's
// user-editable input or code.
func Emphasize(s string) string {
	return color.New(color.Bold).Sprint(s)
}

// ErrorMessage colors an error message so it reads clearly against a
// terminal's default foreground.
func ErrorMessage(s string) string {
	return color.New(color.FgRed).Sprint(s)
}

// palette holds the 10 distinguishable colors ColorGenerator cycles
// through.
var palette = []color.Attribute{
	color.FgHiRed, color.FgHiGreen, color.FgHiYellow, color.FgHiBlue,
	color.FgHiMagenta, color.FgHiCyan, color.FgRed, color.FgGreen,
	color.FgYellow, color.FgBlue,
}

// ColorGenerator returns a function that cycles through a fixed
// palette of 10 colors on each call, so repeated calls assign a stable,
// visually distinct color to each of a small number of names. The same
// *color.Color instance is returned every time its slot comes up in the
// cycle.
func ColorGenerator() func() *color.Color {
	colors := make([]*color.Color, len(palette))
	for i, attr := range palette {
		colors[i] = color.New(attr)
	}
	i := 0
	return func() *color.Color {
		c := colors[i%len(colors)]
		i++
		return c
	}
}

// HelpFlag renders the name of a flag for inclusion in a help or error
// string, e.g. HelpFlag("yes") -> "`--yes`" (highlighted as code).
func HelpFlag(name string) string {
	return HighlightCode(fmt.Sprintf("--%s", name))
}
