// File: cmd/run_test.go
package cmd

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	config.SetDefaults(viper.GetViper())
	t.Cleanup(viper.Reset)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := newRunCmd()
	for _, name := range []string{
		"model", "max-iterations", "start-url", "safety-mode",
		"width", "height", "proxy", "solve-captcha", "coordinate-policy",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestRunTasksRequiresTask(t *testing.T) {
	resetViper(t)
	t.Setenv("WEBPILOT_TASK", "")

	cmd := newRunCmd()
	cmd.SetContext(context.Background())
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no task given")
}

func TestRunTasksRequiresSessionKey(t *testing.T) {
	resetViper(t)
	t.Setenv("WEBPILOT_SESSION_API_KEY", "")
	t.Setenv("STEEL_API_KEY", "")

	cmd := newRunCmd()
	cmd.SetContext(context.Background())
	cmd.SetArgs([]string{"find the docs page"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestRunFlagOverridesReachConfig(t *testing.T) {
	resetViper(t)

	cmd := newRunCmd()
	cmd.SetContext(context.Background())
	cmd.SetArgs([]string{"--max-iterations", "7", "--coordinate-policy", "normalized", "task"})
	// Execution fails later (no API key), but the flag bindings land first.
	_ = cmd.Execute()

	cfg, err := config.NewConfigFromViper(viper.GetViper())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
	assert.Equal(t, "normalized", cfg.Coordinates.Policy)
}
