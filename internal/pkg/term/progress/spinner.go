// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package progress reports execution-driver activity to the terminal
// while a refactor or import phase is polling for a terminal status.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	spin "github.com/briandowns/spinner"
)

// startStopper is the subset of *spinner.Spinner the Spinner type
// drives; letting tests substitute a mock instead of a real terminal
// spinner.
type startStopper interface {
	Start()
	Stop()
}

// Spinner prints a label while an operation is in flight and replaces
// it with a final message once the operation settles.
type Spinner struct {
	spin   startStopper
	real   *spin.Spinner // non-nil only for a real terminal spinner; lets Start set Suffix.
	stderr io.Writer
}

// NewSpinner returns a Spinner that writes to stderr.
func NewSpinner() *Spinner {
	s := spin.New(spin.CharSets[14], 125*time.Millisecond)
	s.Writer = os.Stderr
	return &Spinner{spin: s, real: s, stderr: os.Stderr}
}

// Start begins the spinner with label as its in-progress message.
func (s *Spinner) Start(label string) {
	if s.real != nil {
		s.real.Suffix = " " + label
	}
	s.spin.Start()
}

// Stop ends the spinner and leaves msg as the final line.
func (s *Spinner) Stop(msg string) {
	s.spin.Stop()
	if msg == "" {
		return
	}
	w := s.stderr
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w, msg)
}
