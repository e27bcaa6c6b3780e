package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func onesAdjacency(n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 1
	}
	return mat.NewDense(n, n, data)
}

func TestAssembleNodesMapping(t *testing.T) {
	z := NewTensor(1, ParamChannels, 2)
	for ch := 0; ch < ParamChannels; ch++ {
		z.Data[ch*2] = float64(ch + 1)
		z.Data[ch*2+1] = float64(ch + 1)
	}

	x4, err := AssembleNodes(z)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2, 3}, x4.Shape)

	at := func(c, ts, v int) float64 { return x4.Data[(c*2+ts)*3+v] }
	// Node 0 carries channels 1-3, node 1 channels 4-6, node 2 channels
	// 7-8 plus a zero pad.
	assert.Equal(t, 1.0, at(0, 0, 0))
	assert.Equal(t, 2.0, at(1, 0, 0))
	assert.Equal(t, 3.0, at(2, 0, 0))
	assert.Equal(t, 4.0, at(0, 0, 1))
	assert.Equal(t, 6.0, at(2, 0, 1))
	assert.Equal(t, 7.0, at(0, 1, 2))
	assert.Equal(t, 8.0, at(1, 1, 2))
	assert.Equal(t, 0.0, at(2, 1, 2), "pad channel stays zero")
}

func TestAssembleNodesRejectsWrongChannels(t *testing.T) {
	_, err := AssembleNodes(NewTensor(1, 5, 4))
	assert.Error(t, err)
}

func TestScatterNodesIsAssembleAdjoint(t *testing.T) {
	z := NewTensor(2, ParamChannels, 3)
	g := NewTensor(2, NodeChannels, 3, 3)
	for i := range z.Data {
		z.Data[i] = rand.NormFloat64()
	}
	for i := range g.Data {
		g.Data[i] = rand.NormFloat64()
	}

	x4, err := AssembleNodes(z)
	require.NoError(t, err)
	back := ScatterNodes(g)

	// <A(z), g> == <z, A^T(g)>
	lhs, rhs := 0.0, 0.0
	for i := range x4.Data {
		lhs += x4.Data[i] * g.Data[i]
	}
	for i := range z.Data {
		rhs += z.Data[i] * back.Data[i]
	}
	assert.InDelta(t, lhs, rhs, 1e-10)
}

func TestPredictorForwardShape(t *testing.T) {
	p, err := NewPredictor(8, 3, onesAdjacency(3))
	require.NoError(t, err)

	z := NewTensor(2, ParamChannels, 7)
	pred, cache, err := p.Forward(z)
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.Equal(t, []int{2, KPIChannels, 7}, pred.Shape)
}

func TestPredictorBackwardMatchesFiniteDifference(t *testing.T) {
	p, err := NewPredictor(6, 3, onesAdjacency(3))
	require.NoError(t, err)

	z := NewTensor(1, ParamChannels, 4)
	for i := range z.Data {
		z.Data[i] = rand.NormFloat64()
	}
	w := make([]float64, KPIChannels*4)
	for i := range w {
		w[i] = rand.NormFloat64()
	}

	loss := func(in *Tensor) float64 {
		pred, _, err := p.Forward(in)
		require.NoError(t, err)
		sum := 0.0
		for i, v := range pred.Data {
			sum += w[i] * v
		}
		return sum
	}

	_, cache, err := p.Forward(z)
	require.NoError(t, err)
	grad := p.BackwardInput(NewTensorFromSlice(w, 1, KPIChannels, 4), cache)
	require.Equal(t, []int{1, ParamChannels, 4}, grad.Shape)

	const eps = 1e-6
	for i := range z.Data {
		zp := z.Clone()
		zm := z.Clone()
		zp.Data[i] += eps
		zm.Data[i] -= eps
		numeric := (loss(zp) - loss(zm)) / (2 * eps)
		assert.InDelta(t, numeric, grad.Data[i], 1e-4, "element %d", i)
	}
}

func TestNewSTGCNRejectsEvenKernel(t *testing.T) {
	_, err := NewSTGCN(3, 8, 4, onesAdjacency(3))
	assert.Error(t, err)
}
