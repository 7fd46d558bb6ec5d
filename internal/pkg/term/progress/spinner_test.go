// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"os"
	"testing"
	"time"

	spin "github.com/briandowns/spinner"
	"github.com/stretchr/testify/require"
)

func TestNewSpinner(t *testing.T) {
	got := NewSpinner()

	v, ok := got.spin.(*spin.Spinner)
	require.True(t, ok)
	require.Equal(t, os.Stderr, v.Writer)
	require.Equal(t, 125*time.Millisecond, v.Delay)
}

type fakeStartStopper struct {
	started bool
	stopped bool
}

func (f *fakeStartStopper) Start() { f.started = true }
func (f *fakeStartStopper) Stop()  { f.stopped = true }

func TestSpinner_Start(t *testing.T) {
	fake := &fakeStartStopper{}
	s := &Spinner{spin: fake}

	s.Start("submitting refactor plan")

	require.True(t, fake.started)
}

func TestSpinner_Stop(t *testing.T) {
	fake := &fakeStartStopper{}
	s := &Spinner{spin: fake}

	s.Stop("plan validated")

	require.True(t, fake.stopped)
}
