package inverse

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/openkpi/stgcn/nn"
)

// Optimizer runs the projected-gradient inverse solve. The wrapped model is
// read-only; all mutable state (decision array, moment estimates) is local
// to one Optimize call, so a single Optimizer may serve concurrent calls.
type Optimizer struct {
	model    *nn.Predictor
	cfg      Config
	progress Progress
	log      *zap.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithProgress installs a per-step reporting callback.
func WithProgress(p Progress) Option {
	return func(o *Optimizer) { o.progress = p }
}

// WithLogger routes step diagnostics to log.
func WithLogger(log *zap.Logger) Option {
	return func(o *Optimizer) { o.log = log }
}

// New builds an optimizer for the given model and hyperparameters.
func New(model *nn.Predictor, cfg Config, opts ...Option) (*Optimizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := &Optimizer{model: model, cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// adamState holds the per-call first/second moment estimates and step
// counter of the adaptive update. Zero-initialized at optimization start,
// discarded when the call returns.
type adamState struct {
	m    []float64
	v    []float64
	step int
}

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// Optimize drives the decision array toward the target KPI array. Both
// arrays are in normalized space: target is [B,3,T]; baseline, if non-nil,
// is [B,8,T] and seeds the decision array (zeros otherwise) as well as the
// deviation loss. Exactly cfg.Steps iterations run; after every update the
// decision array is clamped to [ZMin, ZMax]. The returned tensor is the
// final normalized decision array [B,8,T] together with the losses of the
// last evaluated step.
func (o *Optimizer) Optimize(target, baseline *nn.Tensor) (*nn.Tensor, Losses, error) {
	if len(target.Shape) != 3 || target.Dim(1) != nn.KPIChannels {
		return nil, Losses{}, fmt.Errorf("inverse: target must be [B,%d,T], got shape %v",
			nn.KPIChannels, target.Shape)
	}
	batch, seqLen := target.Dim(0), target.Dim(2)

	var decision *nn.Tensor
	if baseline != nil {
		if len(baseline.Shape) != 3 || baseline.Dim(0) != batch ||
			baseline.Dim(1) != nn.ParamChannels || baseline.Dim(2) != seqLen {
			return nil, Losses{}, fmt.Errorf("inverse: baseline must be [%d,%d,%d], got shape %v",
				batch, nn.ParamChannels, seqLen, baseline.Shape)
		}
		decision = baseline.Clone()
	} else {
		decision = nn.NewTensor(batch, nn.ParamChannels, seqLen)
	}

	state := adamState{
		m: make([]float64, decision.Size()),
		v: make([]float64, decision.Size()),
	}
	grad := make([]float64, decision.Size())

	var last Losses
	for step := 0; step < o.cfg.Steps; step++ {
		pred, cache, err := o.model.Forward(decision)
		if err != nil {
			return nil, Losses{}, err
		}

		last.Fit = mse(pred.Data, target.Data)
		if baseline != nil {
			last.Dev = mse(decision.Data, baseline.Data)
		} else {
			// No baseline: the deviation term is identically zero even
			// when beta is positive.
			last.Dev = 0
		}
		last.Smooth = totalVariation(decision)
		last.Total = o.cfg.Alpha*last.Fit + o.cfg.Beta*last.Dev + o.cfg.Gamma*last.Smooth

		// dTotal/dpred flows back through the model; the dev and smooth
		// terms act on the decision array directly.
		gradPred := nn.NewTensor(batch, nn.KPIChannels, seqLen)
		mseGradInto(gradPred.Data, pred.Data, target.Data, o.cfg.Alpha)
		gradZ := o.model.BackwardInput(gradPred, cache)

		copy(grad, gradZ.Data)
		if baseline != nil {
			mseGradInto(grad, decision.Data, baseline.Data, o.cfg.Beta)
		}
		totalVariationGradInto(grad, decision, o.cfg.Gamma)

		o.applyUpdate(decision.Data, grad, &state)

		if o.progress != nil {
			o.progress(step, last, decision.Data)
		}
	}

	return decision, last, nil
}

// applyUpdate performs one bias-corrected adaptive step on the decision
// array and projects it back into the clamp box.
func (o *Optimizer) applyUpdate(decision, grad []float64, s *adamState) {
	s.step++
	biasCorrection1 := 1 - math.Pow(adamBeta1, float64(s.step))
	biasCorrection2 := 1 - math.Pow(adamBeta2, float64(s.step))

	for i, g := range grad {
		s.m[i] = adamBeta1*s.m[i] + (1-adamBeta1)*g
		s.v[i] = adamBeta2*s.v[i] + (1-adamBeta2)*g*g

		mHat := s.m[i] / biasCorrection1
		vHat := s.v[i] / biasCorrection2

		x := decision[i] - o.cfg.LR*mHat/(math.Sqrt(vHat)+adamEpsilon)
		if x < o.cfg.ZMin {
			x = o.cfg.ZMin
		} else if x > o.cfg.ZMax {
			x = o.cfg.ZMax
		}
		decision[i] = x
	}
}
