package nn

import (
	"math"
	"math/rand"
)

// TemporalConv is a 1-D convolution along the time axis, applied
// independently per graph node. Stride is 1 and padding is KernelSize/2, so
// the time length is preserved; KernelSize must be odd for the padding to be
// symmetric.
//
// Kernel layout is [filter][inChannel][tap], flattened row-major. Bias has
// one entry per filter.
type TemporalConv struct {
	InChannels  int
	OutChannels int
	KernelSize  int
	Activation  ActivationType

	Kernel []float64
	Bias   []float64
}

// NewTemporalConv creates a temporal convolution with He-initialized kernel
// weights and uniform fan-in biases. Loaded checkpoints overwrite both.
func NewTemporalConv(inChannels, outChannels, kernelSize int) *TemporalConv {
	kernel := make([]float64, outChannels*inChannels*kernelSize)
	stddev := math.Sqrt(2.0 / float64(inChannels*kernelSize))
	for i := range kernel {
		kernel[i] = rand.NormFloat64() * stddev
	}

	bias := make([]float64, outChannels)
	bound := 1.0 / math.Sqrt(float64(inChannels*kernelSize))
	for i := range bias {
		bias[i] = (rand.Float64()*2 - 1) * bound
	}

	return &TemporalConv{
		InChannels:  inChannels,
		OutChannels: outChannels,
		KernelSize:  kernelSize,
		Activation:  ActivationReLU,
		Kernel:      kernel,
		Bias:        bias,
	}
}

// Forward convolves x [B,C,T,V] along T per node and applies the
// activation. Returns both pre- and post-activation tensors [B,F,T,V]; the
// pre-activation is needed by BackwardInput.
func (c *TemporalConv) Forward(x *Tensor) (preAct, postAct *Tensor) {
	batch, inCh, seqLen, nodes := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	pad := c.KernelSize / 2

	preAct = NewTensor(batch, c.OutChannels, seqLen, nodes)
	postAct = NewTensor(batch, c.OutChannels, seqLen, nodes)

	for b := 0; b < batch; b++ {
		for f := 0; f < c.OutChannels; f++ {
			for t := 0; t < seqLen; t++ {
				for v := 0; v < nodes; v++ {
					sum := c.Bias[f]
					for ic := 0; ic < inCh; ic++ {
						for k := 0; k < c.KernelSize; k++ {
							tin := t + k - pad
							if tin < 0 || tin >= seqLen {
								continue
							}
							inIdx := ((b*inCh+ic)*seqLen+tin)*nodes + v
							kIdx := (f*inCh+ic)*c.KernelSize + k
							sum += x.Data[inIdx] * c.Kernel[kIdx]
						}
					}
					outIdx := ((b*c.OutChannels+f)*seqLen+t)*nodes + v
					preAct.Data[outIdx] = sum
					postAct.Data[outIdx] = Activate(sum, c.Activation)
				}
			}
		}
	}
	return preAct, postAct
}

// BackwardInput propagates gradOutput [B,F,T,V] through the activation and
// the convolution transpose, producing the input gradient [B,C,T,V]. Kernel
// and bias gradients are not computed: weights are frozen at inference.
func (c *TemporalConv) BackwardInput(gradOutput, preAct *Tensor) *Tensor {
	batch, seqLen, nodes := gradOutput.Dim(0), gradOutput.Dim(2), gradOutput.Dim(3)
	pad := c.KernelSize / 2

	gradInput := NewTensor(batch, c.InChannels, seqLen, nodes)

	for b := 0; b < batch; b++ {
		for f := 0; f < c.OutChannels; f++ {
			for t := 0; t < seqLen; t++ {
				for v := 0; v < nodes; v++ {
					outIdx := ((b*c.OutChannels+f)*seqLen+t)*nodes + v
					g := gradOutput.Data[outIdx] * ActivateDerivative(preAct.Data[outIdx], c.Activation)
					if g == 0 {
						continue
					}
					for ic := 0; ic < c.InChannels; ic++ {
						for k := 0; k < c.KernelSize; k++ {
							tin := t + k - pad
							if tin < 0 || tin >= seqLen {
								continue
							}
							inIdx := ((b*c.InChannels+ic)*seqLen+tin)*nodes + v
							kIdx := (f*c.InChannels+ic)*c.KernelSize + k
							gradInput.Data[inIdx] += g * c.Kernel[kIdx]
						}
					}
				}
			}
		}
	}
	return gradInput
}
