package nn

import (
	"math"
	"math/rand"
)

// PointwiseConv is a 1x1 convolution: a channel projection applied
// independently at every (timestep, node) position. Weight layout is
// [filter][inChannel], flattened row-major.
type PointwiseConv struct {
	InChannels  int
	OutChannels int
	Activation  ActivationType

	Weight []float64
	Bias   []float64
}

// NewPointwiseConv creates a linear 1x1 projection with He-initialized
// weights and uniform fan-in biases. Loaded checkpoints overwrite both.
func NewPointwiseConv(inChannels, outChannels int) *PointwiseConv {
	weight := make([]float64, outChannels*inChannels)
	stddev := math.Sqrt(2.0 / float64(inChannels))
	for i := range weight {
		weight[i] = rand.NormFloat64() * stddev
	}

	bias := make([]float64, outChannels)
	bound := 1.0 / math.Sqrt(float64(inChannels))
	for i := range bias {
		bias[i] = (rand.Float64()*2 - 1) * bound
	}

	return &PointwiseConv{
		InChannels:  inChannels,
		OutChannels: outChannels,
		Activation:  ActivationLinear,
		Weight:      weight,
		Bias:        bias,
	}
}

// Forward projects x [B,C,T,V] to [B,F,T,V].
func (p *PointwiseConv) Forward(x *Tensor) (preAct, postAct *Tensor) {
	batch, inCh, seqLen, nodes := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)

	preAct = NewTensor(batch, p.OutChannels, seqLen, nodes)
	postAct = NewTensor(batch, p.OutChannels, seqLen, nodes)

	for b := 0; b < batch; b++ {
		for f := 0; f < p.OutChannels; f++ {
			for t := 0; t < seqLen; t++ {
				for v := 0; v < nodes; v++ {
					sum := p.Bias[f]
					for ic := 0; ic < inCh; ic++ {
						sum += x.Data[((b*inCh+ic)*seqLen+t)*nodes+v] * p.Weight[f*inCh+ic]
					}
					outIdx := ((b*p.OutChannels+f)*seqLen+t)*nodes + v
					preAct.Data[outIdx] = sum
					postAct.Data[outIdx] = Activate(sum, p.Activation)
				}
			}
		}
	}
	return preAct, postAct
}

// BackwardInput computes the input gradient of the projection.
func (p *PointwiseConv) BackwardInput(gradOutput, preAct *Tensor) *Tensor {
	batch, seqLen, nodes := gradOutput.Dim(0), gradOutput.Dim(2), gradOutput.Dim(3)

	gradInput := NewTensor(batch, p.InChannels, seqLen, nodes)

	for b := 0; b < batch; b++ {
		for f := 0; f < p.OutChannels; f++ {
			for t := 0; t < seqLen; t++ {
				for v := 0; v < nodes; v++ {
					outIdx := ((b*p.OutChannels+f)*seqLen+t)*nodes + v
					g := gradOutput.Data[outIdx] * ActivateDerivative(preAct.Data[outIdx], p.Activation)
					if g == 0 {
						continue
					}
					for ic := 0; ic < p.InChannels; ic++ {
						gradInput.Data[((b*p.InChannels+ic)*seqLen+t)*nodes+v] += g * p.Weight[f*p.InChannels+ic]
					}
				}
			}
		}
	}
	return gradInput
}
