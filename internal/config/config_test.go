package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "predictions_table.html", cfg.Inputs.Predictions)
	assert.Equal(t, "nfl_predictions.csv", cfg.Output.Path)
	assert.Equal(t, "2025-09-21", cfg.Season.Date)
	assert.Equal(t, 2.0, cfg.Value.SpreadThreshold)
	assert.Equal(t, 0.05, cfg.Value.ProbabilityThreshold)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Polling.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Polling.Interval)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
inputs:
  predictions: https://example.com/predictions
value:
  spread_threshold: 3.0
polling:
  enabled: true
  interval: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden fields
	assert.Equal(t, "https://example.com/predictions", cfg.Inputs.Predictions)
	assert.Equal(t, 3.0, cfg.Value.SpreadThreshold)
	assert.True(t, cfg.Polling.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Polling.Interval)

	// Unset fields keep their defaults
	assert.Equal(t, "betting_table.html", cfg.Inputs.Betting)
	assert.Equal(t, 0.05, cfg.Value.ProbabilityThreshold)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inputs: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
