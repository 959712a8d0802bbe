package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1.5, cfg.CaptureIntervalSeconds)
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, 0.0, cfg.OverlapTolerance)
	assert.Equal(t, 8.0, cfg.CooldownSeconds)
	assert.Equal(t, 3, cfg.FailureCeiling)
	assert.Equal(t, "excluded_areas.json", cfg.ZonesPath)
	assert.Equal(t, 1500*time.Millisecond, cfg.Interval())
	assert.Equal(t, 8*time.Second, cfg.Cooldown())
}

func TestValidateClampsOutOfRangeValues(t *testing.T) {
	cfg := &Config{
		CaptureIntervalSeconds: 0.01,
		ConfidenceThreshold:    1.5,
		OverlapTolerance:       -0.2,
		CooldownSeconds:        -1,
		FailureCeiling:         0,
		CaptureW:               -10,
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1.5, cfg.CaptureIntervalSeconds)
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, 0.0, cfg.OverlapTolerance)
	assert.Equal(t, 8.0, cfg.CooldownSeconds)
	assert.Equal(t, 3, cfg.FailureCeiling)
	assert.Equal(t, "excluded_areas.json", cfg.ZonesPath)
}

func TestCaptureRect(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.CaptureRect().Empty(), "zero region means full screen")

	cfg.CaptureX, cfg.CaptureY, cfg.CaptureW, cfg.CaptureH = 10, 20, 300, 200
	assert.Equal(t, image.Rect(10, 20, 310, 220), cfg.CaptureRect())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phonewatch.json")

	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.7
	cfg.Model = "llava"
	cfg.Listen = ":8844"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("PHONEWATCH_MODEL", "qwen2.5vl")
	t.Setenv("PHONEWATCH_THRESHOLD", "0.8")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5vl", cfg.Model)
	assert.Equal(t, 0.8, cfg.ConfidenceThreshold)
}

func TestLoadBadJSONReturnsCleanDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	// Valid fields before the syntax error must not leak into the result.
	require.NoError(t, os.WriteFile(path, []byte(`{"confidence_threshold": 0.9, nope`), 0o644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
