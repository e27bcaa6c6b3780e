package inverse

import "github.com/openkpi/stgcn/nn"

// mse is the mean squared error over two equally sized flat arrays.
func mse(pred, target []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	sum := 0.0
	for i, p := range pred {
		d := p - target[i]
		sum += d * d
	}
	return sum / float64(len(pred))
}

// mseGradInto accumulates scale * dMSE/dpred into dst.
func mseGradInto(dst, pred, target []float64, scale float64) {
	if len(pred) == 0 {
		return
	}
	k := 2 * scale / float64(len(pred))
	for i, p := range pred {
		dst[i] += k * (p - target[i])
	}
}

// totalVariation is the mean absolute difference between consecutive
// timesteps of z [B,C,T]: a first-order smoothness measure of the
// trajectory.
func totalVariation(z *nn.Tensor) float64 {
	batch, ch, seqLen := z.Dim(0), z.Dim(1), z.Dim(2)
	if seqLen < 2 {
		return 0
	}
	sum := 0.0
	for bc := 0; bc < batch*ch; bc++ {
		row := z.Data[bc*seqLen : (bc+1)*seqLen]
		for t := 1; t < seqLen; t++ {
			d := row[t] - row[t-1]
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return sum / float64(batch*ch*(seqLen-1))
}

// totalVariationGradInto accumulates scale * dTV/dz into dst. Each |d|
// contributes sign(d)/n at the later timestep and -sign(d)/n at the
// earlier one; the subgradient at d == 0 is 0.
func totalVariationGradInto(dst []float64, z *nn.Tensor, scale float64) {
	batch, ch, seqLen := z.Dim(0), z.Dim(1), z.Dim(2)
	if seqLen < 2 {
		return
	}
	k := scale / float64(batch*ch*(seqLen-1))
	for bc := 0; bc < batch*ch; bc++ {
		base := bc * seqLen
		for t := 1; t < seqLen; t++ {
			d := z.Data[base+t] - z.Data[base+t-1]
			switch {
			case d > 0:
				dst[base+t] += k
				dst[base+t-1] -= k
			case d < 0:
				dst[base+t] -= k
				dst[base+t-1] += k
			}
		}
	}
}
