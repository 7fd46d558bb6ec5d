// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sessions

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/stretchr/testify/require"
)

// fakeSessionValidator is an in-memory sessionValidator.
type fakeSessionValidator struct {
	creds credentials.Value
	err   error
}

func (f *fakeSessionValidator) ValidateCredentials(*session.Session) (credentials.Value, error) {
	return f.creds, f.err
}

func TestProvider_Default(t *testing.T) {
	t.Run("error if region is missing", func(t *testing.T) {
		ogRegion := os.Getenv("AWS_REGION")
		ogDefaultRegion := os.Getenv("AWS_DEFAULT_REGION")
		defer func() {
			err := restoreEnvVar("AWS_REGION", ogRegion)
			require.NoError(t, err)

			err = restoreEnvVar("AWS_DEFAULT_REGION", ogDefaultRegion)
			require.NoError(t, err)
		}()

		// Whether the region information is present depends on the
		// `AWS_REGION` environment variable and the shared config file.
		err := os.Unsetenv("AWS_REGION")
		require.NoError(t, err)
		err = os.Unsetenv("AWS_DEFAULT_REGION")
		require.NoError(t, err)

		// WHEN
		provider := &Provider{
			sessionValidator: &fakeSessionValidator{},
		}
		sess, err := provider.Default()

		// THEN
		require.NotNil(t, err)
		require.EqualError(t, errors.New("missing region configuration"), err.Error())
		require.Nil(t, sess)
	})

	t.Run("region information present", func(t *testing.T) {
		ogRegion := os.Getenv("AWS_REGION")
		defer func() {
			err := restoreEnvVar("AWS_REGION", ogRegion)
			require.NoError(t, err)
		}()

		err := os.Setenv("AWS_REGION", "us-west-2")
		require.NoError(t, err)

		// WHEN
		provider := &Provider{
			sessionValidator: &fakeSessionValidator{},
		}
		sess, err := provider.Default()

		// THEN
		require.NoError(t, err)
		require.Equal(t, "us-west-2", *sess.Config.Region)
	})

	t.Run("session is cached across calls", func(t *testing.T) {
		ogRegion := os.Getenv("AWS_REGION")
		defer func() {
			err := restoreEnvVar("AWS_REGION", ogRegion)
			require.NoError(t, err)
		}()

		err := os.Setenv("AWS_REGION", "us-west-2")
		require.NoError(t, err)

		provider := &Provider{
			sessionValidator: &fakeSessionValidator{},
		}
		first, err := provider.Default()
		require.NoError(t, err)
		second, err := provider.Default()
		require.NoError(t, err)
		require.Same(t, first, second)
	})

	t.Run("session credentials are incorrect", func(t *testing.T) {
		ogRegion := os.Getenv("AWS_REGION")
		defer func() {
			err := restoreEnvVar("AWS_REGION", ogRegion)
			require.NoError(t, err)
		}()

		err := os.Setenv("AWS_REGION", "us-west-2")
		require.NoError(t, err)

		// WHEN
		provider := &Provider{
			sessionValidator: &fakeSessionValidator{err: context.DeadlineExceeded},
		}
		sess, err := provider.Default()

		// THEN
		require.EqualError(t, err, "context deadline exceeded")
		require.Nil(t, sess)

		// A credential retrieval failure carries recovery guidance for
		// the top-level error sink.
		var recommender interface{ RecommendActions() string }
		require.ErrorAs(t, err, &recommender)
		require.Contains(t, recommender.RecommendActions(), "credentials")
	})
}

func TestImmutableProvider(t *testing.T) {
	require.Same(t, ImmutableProvider(), ImmutableProvider())
}

func restoreEnvVar(key string, originalValue string) error {
	if originalValue == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, originalValue)
}
