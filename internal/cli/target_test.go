package cli

import (
	"testing"

	"github.com/rileyhilliard/shipr/internal/config"
	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Targets["prod"] = config.Target{Host: "10.0.0.5", Port: 22, User: "deploy", Key: "prod-key"}
	cfg.Targets["staging"] = config.Target{Host: "10.0.0.6", Port: 2222, User: "deploy", Key: "staging-key"}
	return cfg
}

func TestResolveTarget_Configured(t *testing.T) {
	tg, err := resolveTarget(testConfig(), "prod", "")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", tg.Host)
	assert.Equal(t, "deploy", tg.User)
	assert.Equal(t, "prod-key", tg.KeyName)

	tg, err = resolveTarget(testConfig(), "PROD", "other")
	require.NoError(t, err)
	assert.Equal(t, "other", tg.KeyName)
}

func TestResolveTarget_AdHoc(t *testing.T) {
	tg, err := resolveTarget(testConfig(), "root@example.com:2200", "ops")
	require.NoError(t, err)
	assert.Equal(t, "example.com", tg.Host)
	assert.Equal(t, 2200, tg.Port)
	assert.Equal(t, "root", tg.User)
	assert.Equal(t, "ops", tg.KeyName)

	_, err = resolveTarget(testConfig(), "root@example.com", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestPickTarget(t *testing.T) {
	orig := targetPicker
	t.Cleanup(func() { targetPicker = orig })

	var offered []ui.TargetInfo
	targetPicker = func(targets []ui.TargetInfo) (*ui.TargetInfo, error) {
		offered = targets
		return &targets[1], nil
	}

	name, err := pickTarget(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "staging", name)

	require.Len(t, offered, 2)
	assert.Equal(t, "prod", offered[0].Name)
	assert.Equal(t, "deploy@10.0.0.5:22", offered[0].Address)
	assert.Equal(t, "staging-key", offered[1].Key)
}

func TestPickTarget_Cancelled(t *testing.T) {
	orig := targetPicker
	t.Cleanup(func() { targetPicker = orig })
	targetPicker = func([]ui.TargetInfo) (*ui.TargetInfo, error) { return nil, nil }

	_, err := pickTarget(testConfig())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "No target selected")
}
