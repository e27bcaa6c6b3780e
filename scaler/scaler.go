// Package scaler provides per-channel z-score normalization for parameter
// and KPI arrays, backed by the scaler statistics artifact produced by the
// training pipeline.
package scaler

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Stats holds one channel set's mean and standard deviation. A std of zero
// is replaced with 1 at load time so Apply never divides by zero; such
// channels do not round-trip exactly.
type Stats struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Params is the full scaler artifact: "x" scales the 8 parameter channels,
// "y" the 3 KPI channels.
type Params struct {
	X Stats `json:"x"`
	Y Stats `json:"y"`
}

// Load reads the scaler artifact and sanitizes degenerate channels.
func Load(path string, log *zap.Logger) (*Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scaler: read artifact: %w", err)
	}
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("scaler: parse artifact: %w", err)
	}
	if err := p.X.check("x"); err != nil {
		return nil, err
	}
	if err := p.Y.check("y"); err != nil {
		return nil, err
	}
	p.X.guardZeroStd("x", log)
	p.Y.guardZeroStd("y", log)
	return &p, nil
}

func (s *Stats) check(name string) error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Std) {
		return fmt.Errorf("scaler: %q stats need matching mean/std vectors, got %d/%d",
			name, len(s.Mean), len(s.Std))
	}
	return nil
}

func (s *Stats) guardZeroStd(name string, log *zap.Logger) {
	for i, std := range s.Std {
		if std == 0 {
			s.Std[i] = 1
			log.Warn("zero std in scaler stats, using 1",
				zap.String("set", name), zap.Int("channel", i))
		}
	}
}

// Channels returns the channel count these stats scale.
func (s Stats) Channels() int { return len(s.Mean) }

// Apply z-score normalizes arr, whose trailing axis is the channel axis
// (len(arr) must be a multiple of Channels()). A fresh slice is returned;
// arr is never mutated.
func (s Stats) Apply(arr []float64) []float64 {
	c := s.Channels()
	out := make([]float64, len(arr))
	for i, v := range arr {
		std := s.Std[i%c]
		if std == 0 {
			std = 1
		}
		out[i] = (v - s.Mean[i%c]) / std
	}
	return out
}

// Inverse undoes Apply: x*std + mean per channel.
func (s Stats) Inverse(arr []float64) []float64 {
	c := s.Channels()
	out := make([]float64, len(arr))
	for i, v := range arr {
		out[i] = v*s.Std[i%c] + s.Mean[i%c]
	}
	return out
}
