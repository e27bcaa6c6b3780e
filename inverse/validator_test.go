package inverse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeDropsBadEntries(t *testing.T) {
	sane := Sanitize(map[string]any{
		"steps":       50000, // out of range
		"alpha":       "abc", // unparseable
		"unknown_key": 5,     // unrecognized
	}, zap.NewNop())

	assert.Empty(t, sane)
}

func TestSanitizeAcceptsNumericStrings(t *testing.T) {
	sane := Sanitize(map[string]any{
		"steps": "50",
		"lr":    "0.05",
		"zmin":  -3.0,
	}, zap.NewNop())

	require.Len(t, sane, 3)
	assert.Equal(t, 50, sane["steps"])
	assert.Equal(t, 0.05, sane["lr"])
	assert.Equal(t, -3.0, sane["zmin"])
}

func TestSanitizeRangeBoundsInclusive(t *testing.T) {
	sane := Sanitize(map[string]any{
		"steps": 10000,
		"alpha": 100.0,
		"lr":    1e-6,
		"zmax":  10.0,
	}, zap.NewNop())
	assert.Len(t, sane, 4)

	sane = Sanitize(map[string]any{
		"steps": 0,
		"alpha": -0.001,
		"lr":    1.5,
		"zmax":  10.5,
	}, zap.NewNop())
	assert.Empty(t, sane)
}

func TestSanitizeJSONNumber(t *testing.T) {
	sane := Sanitize(map[string]any{"beta": json.Number("2.5")}, zap.NewNop())
	assert.Equal(t, 2.5, sane["beta"])
}

func TestApplyOverrides(t *testing.T) {
	cfg := ApplyOverrides(DefaultConfig(), map[string]any{
		"steps": 100,
		"gamma": 0.0,
	})
	assert.Equal(t, 100, cfg.Steps)
	assert.Equal(t, 0.0, cfg.Gamma)
	assert.Equal(t, 1.0, cfg.Alpha, "untouched keys keep defaults")
	assert.Equal(t, 2.0, cfg.Beta)
}

func TestConfigValidate(t *testing.T) {
	bad := DefaultConfig()
	bad.ZMin = 4
	bad.ZMax = -4
	assert.Error(t, bad.validate())

	bad = DefaultConfig()
	bad.Steps = 0
	assert.Error(t, bad.validate())

	assert.NoError(t, DefaultConfig().validate())
}
