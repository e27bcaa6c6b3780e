package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3, cfg.NumNodes)
	assert.Equal(t, 64, cfg.HidChannels)
	assert.Equal(t, 5, cfg.KernelSize)
	assert.Equal(t, 300*time.Second, cfg.OptimizeTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODEL_PATH", "/tmp/model.json")
	t.Setenv("KERNEL_SIZE", "7")
	t.Setenv("PORT", "9000")
	t.Setenv("OPTIMIZE_TIMEOUT_SECONDS", "60")

	cfg := FromEnv()
	assert.Equal(t, "/tmp/model.json", cfg.ModelPath)
	assert.Equal(t, 7, cfg.KernelSize)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, time.Minute, cfg.OptimizeTimeout)
	assert.Equal(t, 3, cfg.NumNodes, "unset keys keep defaults")
}

func TestFromEnvIgnoresUnparseable(t *testing.T) {
	t.Setenv("HID_CHANNELS", "lots")
	cfg := FromEnv()
	assert.Equal(t, 64, cfg.HidChannels)
}
