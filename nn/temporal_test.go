package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalConvKnownValues(t *testing.T) {
	c := NewTemporalConv(1, 1, 3)
	c.Kernel = []float64{1, 2, 1}
	c.Bias = []float64{0}

	x := NewTensorFromSlice([]float64{1, 2, 3}, 1, 1, 3, 1)
	require.NotNil(t, x)

	pre, post := c.Forward(x)
	// Symmetric zero padding preserves T.
	assert.Equal(t, []int{1, 1, 3, 1}, post.Shape)
	assert.InDeltaSlice(t, []float64{4, 8, 8}, pre.Data, 1e-12)
	assert.Equal(t, pre.Data, post.Data, "all positive, ReLU must pass through")
}

func TestTemporalConvReLUZeroesNegatives(t *testing.T) {
	c := NewTemporalConv(1, 1, 3)
	c.Kernel = []float64{0, 1, 0}
	c.Bias = []float64{-2}

	x := NewTensorFromSlice([]float64{1, 5, 1}, 1, 1, 3, 1)
	_, post := c.Forward(x)
	assert.Equal(t, []float64{0, 3, 0}, post.Data)
}

func TestTemporalConvPerNodeIndependence(t *testing.T) {
	c := NewTemporalConv(2, 3, 5)

	// Two nodes with identical per-node signals must produce identical
	// per-node outputs: no mixing across the node axis.
	x := NewTensor(1, 2, 6, 2)
	for ch := 0; ch < 2; ch++ {
		for ts := 0; ts < 6; ts++ {
			v := rand.NormFloat64()
			x.Data[(ch*6+ts)*2+0] = v
			x.Data[(ch*6+ts)*2+1] = v
		}
	}

	_, post := c.Forward(x)
	for f := 0; f < 3; f++ {
		for ts := 0; ts < 6; ts++ {
			assert.Equal(t, post.Data[(f*6+ts)*2+0], post.Data[(f*6+ts)*2+1])
		}
	}
}

func TestTemporalConvBackwardMatchesFiniteDifference(t *testing.T) {
	c := NewTemporalConv(2, 3, 3)

	x := NewTensor(1, 2, 4, 2)
	for i := range x.Data {
		x.Data[i] = rand.NormFloat64()
	}
	w := make([]float64, 1*3*4*2)
	for i := range w {
		w[i] = rand.NormFloat64()
	}

	loss := func(in *Tensor) float64 {
		_, post := c.Forward(in)
		sum := 0.0
		for i, v := range post.Data {
			sum += w[i] * v
		}
		return sum
	}

	pre, _ := c.Forward(x)
	gradOut := NewTensorFromSlice(w, 1, 3, 4, 2)
	grad := c.BackwardInput(gradOut, pre)

	const eps = 1e-6
	for i := range x.Data {
		xp := x.Clone()
		xm := x.Clone()
		xp.Data[i] += eps
		xm.Data[i] -= eps
		numeric := (loss(xp) - loss(xm)) / (2 * eps)
		assert.InDelta(t, numeric, grad.Data[i], 1e-4, "element %d", i)
	}
}
