package inverse

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
)

// Hyperparameter bounds for externally supplied optimizer settings. Values
// outside these ranges, unparseable values and unknown keys are dropped
// with a diagnostic; the call then proceeds with defaults for those keys.
type bound struct {
	min, max float64
	integer  bool
}

var hyperparamBounds = map[string]bound{
	"steps": {min: 1, max: 10000, integer: true},
	"alpha": {min: 0, max: 100},
	"beta":  {min: 0, max: 100},
	"gamma": {min: 0, max: 100},
	"lr":    {min: 1e-6, max: 1},
	"zmin":  {min: -10, max: 10},
	"zmax":  {min: -10, max: 10},
}

// Sanitize validates a raw hyperparameter mapping and returns the subset
// that parsed and passed its range check. Integer keys come back as int,
// the rest as float64. One bad entry never aborts the request.
func Sanitize(raw map[string]any, log *zap.Logger) map[string]any {
	if log == nil {
		log = zap.NewNop()
	}
	sane := make(map[string]any, len(raw))
	for key, value := range raw {
		b, ok := hyperparamBounds[key]
		if !ok {
			log.Warn("unknown hyperparameter ignored", zap.String("key", key))
			continue
		}
		f, err := toFloat(value)
		if err != nil {
			log.Warn("invalid hyperparameter dropped",
				zap.String("key", key), zap.Any("value", value), zap.Error(err))
			continue
		}
		if b.integer {
			f = math.Trunc(f)
		}
		if f < b.min || f > b.max {
			log.Warn("hyperparameter out of range, dropped",
				zap.String("key", key), zap.Float64("value", f),
				zap.Float64("min", b.min), zap.Float64("max", b.max))
			continue
		}
		if b.integer {
			sane[key] = int(f)
		} else {
			sane[key] = f
		}
	}
	return sane
}

// toFloat accepts the numeric encodings that reach us from JSON bodies,
// CLI flags and config files, including numeric strings.
func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("inverse: not a number: %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("inverse: unsupported value type %T", value)
	}
}

// ApplyOverrides overlays sanitized hyperparameters onto cfg.
func ApplyOverrides(cfg Config, sane map[string]any) Config {
	for key, value := range sane {
		switch key {
		case "steps":
			cfg.Steps = value.(int)
		case "alpha":
			cfg.Alpha = value.(float64)
		case "beta":
			cfg.Beta = value.(float64)
		case "gamma":
			cfg.Gamma = value.(float64)
		case "lr":
			cfg.LR = value.(float64)
		case "zmin":
			cfg.ZMin = value.(float64)
		case "zmax":
			cfg.ZMax = value.(float64)
		}
	}
	return cfg
}
