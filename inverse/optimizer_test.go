package inverse

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/openkpi/stgcn/nn"
)

func testModel(t *testing.T) *nn.Predictor {
	t.Helper()
	adj := mat.NewDense(3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
	p, err := nn.NewPredictor(12, 3, adj)
	require.NoError(t, err)
	return p
}

func randomTarget(batch, seqLen int) *nn.Tensor {
	target := nn.NewTensor(batch, nn.KPIChannels, seqLen)
	for i := range target.Data {
		target.Data[i] = rand.NormFloat64()
	}
	return target
}

func TestOptimizeClampInvariantEveryStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 60
	cfg.ZMin = -0.5
	cfg.ZMax = 0.5

	checked := 0
	opt, err := New(testModel(t), cfg, WithProgress(func(step int, _ Losses, decision []float64) {
		for _, v := range decision {
			require.GreaterOrEqual(t, v, cfg.ZMin)
			require.LessOrEqual(t, v, cfg.ZMax)
		}
		checked++
	}))
	require.NoError(t, err)

	_, _, err = opt.Optimize(randomTarget(1, 6), nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Steps, checked, "clamp must be verified after every step")
}

func TestOptimizeNoBaselineDevIsZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 40
	cfg.Beta = 5 // a positive beta without a baseline must not matter

	opt, err := New(testModel(t), cfg, WithProgress(func(_ int, l Losses, _ []float64) {
		assert.Zero(t, l.Dev)
	}))
	require.NoError(t, err)

	_, last, err := opt.Optimize(randomTarget(1, 5), nil)
	require.NoError(t, err)
	assert.Zero(t, last.Dev)
}

func TestOptimizeFitLossImproves(t *testing.T) {
	cfg := Config{Alpha: 1, Beta: 0, Gamma: 0, Steps: 200, LR: 0.05, ZMin: -3, ZMax: 3}

	var first, lastSeen float64
	opt, err := New(testModel(t), cfg, WithProgress(func(step int, l Losses, _ []float64) {
		if step == 0 {
			first = l.Fit
		}
		lastSeen = l.Fit
	}))
	require.NoError(t, err)

	target := nn.NewTensor(1, nn.KPIChannels, 10)
	for ts := 0; ts < 10; ts++ {
		target.Data[0*10+ts] = 1.5
		target.Data[1*10+ts] = -0.5
		target.Data[2*10+ts] = 0.8
	}

	_, last, err := opt.Optimize(target, nil)
	require.NoError(t, err)
	assert.Greater(t, first, last.Fit, "fit loss at step 0 must exceed the final fit loss")
	assert.Equal(t, lastSeen, last.Fit)
}

func TestOptimizeBetaPullsTowardBaseline(t *testing.T) {
	model := testModel(t)
	baseline := nn.NewTensor(1, nn.ParamChannels, 6)
	for i := range baseline.Data {
		baseline.Data[i] = rand.NormFloat64() * 0.5
	}

	run := func(beta float64, target *nn.Tensor) float64 {
		cfg := Config{Alpha: 1, Beta: beta, Gamma: 0, Steps: 120, LR: 0.05, ZMin: -3, ZMax: 3}
		opt, err := New(model, cfg)
		require.NoError(t, err)
		_, last, err := opt.Optimize(target, baseline)
		require.NoError(t, err)
		return last.Dev
	}

	// Averaged over several targets, a strong deviation penalty must not
	// leave the trajectory further from the baseline than no penalty.
	var devFree, devPinned float64
	for i := 0; i < 3; i++ {
		target := randomTarget(1, 6)
		devFree += run(0, target)
		devPinned += run(10, target)
	}
	assert.LessOrEqual(t, devPinned, devFree+1e-9)
}

func TestOptimizeShapeChecks(t *testing.T) {
	opt, err := New(testModel(t), DefaultConfig())
	require.NoError(t, err)

	_, _, err = opt.Optimize(nn.NewTensor(1, 5, 4), nil)
	assert.Error(t, err, "target must carry the KPI channel count")

	_, _, err = opt.Optimize(randomTarget(1, 4), nn.NewTensor(1, nn.ParamChannels, 9))
	assert.Error(t, err, "baseline time extent must match the target")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LR = 0
	_, err := New(testModel(t), cfg)
	assert.Error(t, err)
}

func TestTotalVariation(t *testing.T) {
	z := nn.NewTensorFromSlice([]float64{0, 1, 3, 0}, 1, 1, 4)
	// |1| + |2| + |-3| over 3 diffs.
	assert.InDelta(t, 2.0, totalVariation(z), 1e-12)

	flat := nn.NewTensorFromSlice([]float64{2, 2, 2}, 1, 1, 3)
	assert.Zero(t, totalVariation(flat))

	single := nn.NewTensor(1, 1, 1)
	assert.Zero(t, totalVariation(single))
}

func TestTotalVariationGradMatchesFiniteDifference(t *testing.T) {
	z := nn.NewTensor(1, 2, 5)
	for i := range z.Data {
		z.Data[i] = rand.NormFloat64()
	}

	grad := make([]float64, z.Size())
	totalVariationGradInto(grad, z, 1)

	const eps = 1e-6
	for i := range z.Data {
		zp := z.Clone()
		zm := z.Clone()
		zp.Data[i] += eps
		zm.Data[i] -= eps
		numeric := (totalVariation(zp) - totalVariation(zm)) / (2 * eps)
		assert.InDelta(t, numeric, grad[i], 1e-6, "element %d", i)
	}
}
