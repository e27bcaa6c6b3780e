package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNormalizeAdjacencyAllOnes(t *testing.T) {
	adj := mat.NewDense(3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
	norm, err := NormalizeAdjacency(adj)
	require.NoError(t, err)

	// With self loops the diagonal is 2, off-diagonal 1, every degree 4.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.25
			if i == j {
				want = 0.5
			}
			assert.InDelta(t, want, norm.At(i, j), 1e-12)
		}
	}
}

func TestNormalizeAdjacencyRejectsNonSquare(t *testing.T) {
	_, err := NormalizeAdjacency(mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}

func TestNormalizeAdjacencyZeroDegree(t *testing.T) {
	// A self-loop of -1 cancels the added identity, leaving degree 0; the
	// guard must produce 0 rather than +Inf.
	adj := mat.NewDense(1, 1, []float64{-1})
	norm, err := NormalizeAdjacency(adj)
	require.NoError(t, err)
	assert.Equal(t, 0.0, norm.At(0, 0))
}

func TestGraphConvSingleNodeIsIdentity(t *testing.T) {
	g, err := NewGraphConv(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)

	x := NewTensor(2, 4, 5, 1)
	for i := range x.Data {
		x.Data[i] = rand.NormFloat64()
	}

	out := g.Forward(x)
	assert.Equal(t, x.Data, out.Data)
}

func TestGraphConvBackwardIsTransposeContraction(t *testing.T) {
	g, err := NewGraphConv(mat.NewDense(3, 3, []float64{
		0, 1, 0,
		1, 0, 1,
		0, 1, 0,
	}))
	require.NoError(t, err)

	// <N(x), y> == <x, N^T(y)> for the adjoint pair.
	x := NewTensor(1, 2, 3, 3)
	y := NewTensor(1, 2, 3, 3)
	for i := range x.Data {
		x.Data[i] = rand.NormFloat64()
		y.Data[i] = rand.NormFloat64()
	}

	fwd := g.Forward(x)
	bwd := g.BackwardInput(y)

	lhs, rhs := 0.0, 0.0
	for i := range fwd.Data {
		lhs += fwd.Data[i] * y.Data[i]
		rhs += x.Data[i] * bwd.Data[i]
	}
	assert.InDelta(t, lhs, rhs, 1e-10)
}
