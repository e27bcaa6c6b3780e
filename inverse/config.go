// Package inverse solves the inverse problem: adjust a parameter trajectory
// until the forward model's KPI prediction matches a target, by
// projected-gradient descent in normalized space.
package inverse

import "fmt"

// Config holds the optimizer hyperparameters. Alpha, Beta and Gamma weight
// the fit, deviation-from-baseline and temporal-smoothness loss terms;
// Steps is the fixed iteration count (there is no convergence-based early
// exit, so runtime stays bounded and predictable); ZMin/ZMax are the
// inclusive clamp bounds in normalized space.
type Config struct {
	Alpha float64
	Beta  float64
	Gamma float64
	Steps int
	LR    float64
	ZMin  float64
	ZMax  float64
}

// DefaultConfig returns the deployment defaults.
func DefaultConfig() Config {
	return Config{
		Alpha: 1.0,
		Beta:  2.0,
		Gamma: 0.1,
		Steps: 800,
		LR:    5e-2,
		ZMin:  -3.0,
		ZMax:  3.0,
	}
}

func (c Config) validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("inverse: steps must be positive, got %d", c.Steps)
	}
	if c.LR <= 0 {
		return fmt.Errorf("inverse: lr must be positive, got %g", c.LR)
	}
	if c.Alpha < 0 || c.Beta < 0 || c.Gamma < 0 {
		return fmt.Errorf("inverse: loss weights must be non-negative, got alpha=%g beta=%g gamma=%g",
			c.Alpha, c.Beta, c.Gamma)
	}
	if c.ZMin > c.ZMax {
		return fmt.Errorf("inverse: zmin %g exceeds zmax %g", c.ZMin, c.ZMax)
	}
	return nil
}

// Losses reports the loss terms of one optimization step.
type Losses struct {
	Fit    float64
	Dev    float64
	Smooth float64
	Total  float64
}

// Progress is an optional per-step callback. The decision slice is a
// read-only view of the current normalized decision array; callers must not
// retain it across steps.
type Progress func(step int, l Losses, decision []float64)
