package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NormalizeAdjacency builds the symmetric normalized adjacency
// N = D^-1/2 (A+I) D^-1/2 where D is the degree (row-sum) of A with self
// loops added. A zero degree maps to 0 instead of +Inf so isolated nodes
// stay isolated. A must be square.
func NormalizeAdjacency(adj *mat.Dense) (*mat.Dense, error) {
	r, c := adj.Dims()
	if r != c {
		return nil, fmt.Errorf("nn: adjacency matrix must be square, got %dx%d", r, c)
	}

	withLoops := mat.NewDense(r, r, nil)
	withLoops.Copy(adj)
	for i := 0; i < r; i++ {
		withLoops.Set(i, i, withLoops.At(i, i)+1)
	}

	degInvSqrt := make([]float64, r)
	for i := 0; i < r; i++ {
		deg := mat.Sum(withLoops.RowView(i))
		if deg > 0 {
			degInvSqrt[i] = 1 / math.Sqrt(deg)
		}
	}

	norm := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			norm.Set(i, j, degInvSqrt[i]*withLoops.At(i, j)*degInvSqrt[j])
		}
	}
	return norm, nil
}

// GraphConv propagates features across graph nodes by contracting the node
// axis with a fixed normalized adjacency. It has no trainable weights.
type GraphConv struct {
	Norm *mat.Dense
}

// NewGraphConv normalizes adj and wraps it for propagation.
func NewGraphConv(adj *mat.Dense) (*GraphConv, error) {
	norm, err := NormalizeAdjacency(adj)
	if err != nil {
		return nil, err
	}
	return &GraphConv{Norm: norm}, nil
}

// Nodes returns the node count the propagation was built for.
func (g *GraphConv) Nodes() int {
	n, _ := g.Norm.Dims()
	return n
}

// Forward contracts the node axis: y[b,c,t,w] = sum_v x[b,c,t,v] * N[v,w].
func (g *GraphConv) Forward(x *Tensor) *Tensor {
	return g.contract(x, false)
}

// BackwardInput is the adjoint of Forward: the same contraction with N
// transposed.
func (g *GraphConv) BackwardInput(gradOutput *Tensor) *Tensor {
	return g.contract(gradOutput, true)
}

func (g *GraphConv) contract(x *Tensor, transpose bool) *Tensor {
	batch, ch, seqLen, nodes := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	out := NewTensor(batch, ch, seqLen, nodes)

	for b := 0; b < batch; b++ {
		for c := 0; c < ch; c++ {
			for t := 0; t < seqLen; t++ {
				base := ((b*ch+c)*seqLen + t) * nodes
				for w := 0; w < nodes; w++ {
					sum := 0.0
					for v := 0; v < nodes; v++ {
						if transpose {
							sum += x.Data[base+v] * g.Norm.At(w, v)
						} else {
							sum += x.Data[base+v] * g.Norm.At(v, w)
						}
					}
					out.Data[base+w] = sum
				}
			}
		}
	}
	return out
}
