package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrachat/app/config"
	"infrachat/internal/infrastructure/console"
)

func TestRootCmd(t *testing.T) {
	t.Run("flags override environment", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "k")
		t.Setenv("LLM_MODEL", "env-model")
		t.Setenv("TERRAFORM_PLAN_TIMEOUT", "45s")

		var got *config.Config
		cmd := newRootCmd(func(_ context.Context, cfg *config.Config) error {
			got = cfg
			return nil
		})
		cmd.SetArgs([]string{"--model", "flag-model", "--init-timeout", "5s", "--terraform-bin", "/opt/tf"})

		require.NoError(t, cmd.ExecuteContext(context.Background()))
		require.NotNil(t, got)
		assert.Equal(t, "flag-model", got.LLM.Model)
		assert.Equal(t, 5*time.Second, got.Terraform.InitTimeout)
		assert.Equal(t, 45*time.Second, got.Terraform.PlanTimeout)
		assert.Equal(t, "/opt/tf", got.Terraform.Binary)
	})

	t.Run("provider flag picks that provider's default model", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "k")
		t.Setenv("LLM_MODEL", "")

		var got *config.Config
		cmd := newRootCmd(func(_ context.Context, cfg *config.Config) error {
			got = cfg
			return nil
		})
		cmd.SetArgs([]string{"--provider", "openai"})

		require.NoError(t, cmd.ExecuteContext(context.Background()))
		assert.Equal(t, "openai", got.LLM.Provider)
		assert.Equal(t, "gpt-4o-mini", got.LLM.Model)
	})

	t.Run("missing credential stops before the session", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "")
		t.Setenv("LLM_API_KEY", "")

		called := false
		cmd := newRootCmd(func(context.Context, *config.Config) error {
			called = true
			return nil
		})
		cmd.SetArgs(nil)

		err := cmd.ExecuteContext(context.Background())
		assert.ErrorIs(t, err, config.ErrMissingAPIKey)
		assert.False(t, called)
	})

	t.Run("positional arguments are rejected", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "k")
		cmd := newRootCmd(func(context.Context, *config.Config) error { return nil })
		cmd.SetArgs([]string{"create", "a", "bucket"})

		assert.Error(t, cmd.ExecuteContext(context.Background()))
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 130, exitCode(console.ErrInterrupted))
	assert.Equal(t, 1, exitCode(config.ErrMissingAPIKey))
	assert.Equal(t, 1, exitCode(fmt.Errorf("%w: %w", errSessionFailed, errors.New("boom"))))
	assert.Equal(t, 1, exitCode(errors.New("llm client: bad provider")))
}
