// Package engine exposes the two operations of the system, forward KPI
// prediction and inverse parameter optimization, around an explicit
// inference context that owns the loaded model and scaler artifacts.
package engine

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/openkpi/stgcn/config"
	"github.com/openkpi/stgcn/inverse"
	"github.com/openkpi/stgcn/nn"
	"github.com/openkpi/stgcn/scaler"
)

// Context holds the model weights, scaler statistics and normalized
// adjacency, loaded once at startup. Everything in it is read-only after
// New returns, so one Context serves concurrent calls without locking;
// per-call state lives on the stack of each operation.
type Context struct {
	model  *nn.Predictor
	scaler *scaler.Params
	log    *zap.Logger
}

// New loads the model and scaler artifacts named by cfg and builds the
// shared inference context. The deployment adjacency is fully coupled:
// an all-ones matrix over cfg.NumNodes nodes.
func New(cfg config.Config, log *zap.Logger) (*Context, error) {
	adjData := make([]float64, cfg.NumNodes*cfg.NumNodes)
	for i := range adjData {
		adjData[i] = 1
	}
	adj := mat.NewDense(cfg.NumNodes, cfg.NumNodes, adjData)

	model, err := nn.NewPredictor(cfg.HidChannels, cfg.KernelSize, adj)
	if err != nil {
		return nil, err
	}
	if err := nn.LoadCheckpoint(cfg.ModelPath, model, log); err != nil {
		return nil, err
	}

	sc, err := scaler.Load(cfg.ScalerPath, log)
	if err != nil {
		return nil, err
	}
	if got := sc.X.Channels(); got != nn.ParamChannels {
		return nil, fmt.Errorf("engine: scaler x stats cover %d channels, want %d", got, nn.ParamChannels)
	}
	if got := sc.Y.Channels(); got != nn.KPIChannels {
		return nil, fmt.Errorf("engine: scaler y stats cover %d channels, want %d", got, nn.KPIChannels)
	}

	log.Info("inference context ready",
		zap.String("model", cfg.ModelPath),
		zap.String("scaler", cfg.ScalerPath),
		zap.Int("nodes", cfg.NumNodes),
		zap.Int("hidden", cfg.HidChannels),
		zap.Int("kernel", cfg.KernelSize))
	return &Context{model: model, scaler: sc, log: log}, nil
}

// NewFromParts assembles a context from already constructed pieces.
func NewFromParts(model *nn.Predictor, sc *scaler.Params, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{model: model, scaler: sc, log: log}
}

// Model returns the shared predictor (read-only).
func (c *Context) Model() *nn.Predictor { return c.model }

// Scaler returns the shared scaler statistics (read-only).
func (c *Context) Scaler() *scaler.Params { return c.scaler }

// PromoteBatch lifts a single trajectory [T,C] into a batch of one.
func PromoteBatch(arr [][]float64) [][][]float64 {
	return [][][]float64{arr}
}

// validateBatch checks a batched array [B,T,channels] for rank and a
// consistent trailing channel count.
func validateBatch(arr [][][]float64, channels int) (batch, seqLen int, err error) {
	if len(arr) == 0 || len(arr[0]) == 0 {
		return 0, 0, shapeErrorf(channels, "empty array")
	}
	batch, seqLen = len(arr), len(arr[0])
	for b, traj := range arr {
		if len(traj) != seqLen {
			return 0, 0, shapeErrorf(channels, "ragged batch: trajectory %d has %d timesteps, first has %d",
				b, len(traj), seqLen)
		}
		for t, row := range traj {
			if len(row) != channels {
				return 0, 0, shapeErrorf(channels, "[%d,%d,%d] (row %d,%d)", batch, seqLen, len(row), b, t)
			}
		}
	}
	return batch, seqLen, nil
}

// reorderChannels applies an index list along the trailing axis, matching
// arr[..., idx]. The list must be a full permutation-sized selection of the
// channel axis.
func reorderChannels(arr [][][]float64, indices []int, channels int) ([][][]float64, error) {
	if indices == nil {
		return arr, nil
	}
	if len(indices) != channels {
		return nil, shapeErrorf(channels, "reorder index list of length %d", len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= channels {
			return nil, shapeErrorf(channels, "reorder index %d out of range", idx)
		}
	}
	out := make([][][]float64, len(arr))
	for b, traj := range arr {
		out[b] = make([][]float64, len(traj))
		for t, row := range traj {
			picked := make([]float64, channels)
			for i, idx := range indices {
				picked[i] = row[idx]
			}
			out[b][t] = picked
		}
	}
	return out, nil
}

// flattenBTC lays [B][T][C] out as a flat [B*T*C] slice, channel-minor, the
// layout the scaler broadcasts over.
func flattenBTC(arr [][][]float64, batch, seqLen, channels int) []float64 {
	flat := make([]float64, 0, batch*seqLen*channels)
	for _, traj := range arr {
		for _, row := range traj {
			flat = append(flat, row...)
		}
	}
	return flat
}

// liftBTC reshapes a flat channel-minor slice back into [B][T][C].
func liftBTC(flat []float64, batch, seqLen, channels int) [][][]float64 {
	out := make([][][]float64, batch)
	for b := 0; b < batch; b++ {
		out[b] = make([][]float64, seqLen)
		for t := 0; t < seqLen; t++ {
			start := (b*seqLen + t) * channels
			row := make([]float64, channels)
			copy(row, flat[start:start+channels])
			out[b][t] = row
		}
	}
	return out
}

// transposeToBCT converts flat [B,T,C] data into a [B,C,T] tensor, the
// layout the model consumes.
func transposeToBCT(flat []float64, batch, seqLen, channels int) *nn.Tensor {
	out := nn.NewTensor(batch, channels, seqLen)
	for b := 0; b < batch; b++ {
		for t := 0; t < seqLen; t++ {
			for ch := 0; ch < channels; ch++ {
				out.Data[(b*channels+ch)*seqLen+t] = flat[(b*seqLen+t)*channels+ch]
			}
		}
	}
	return out
}

// transposeToBTC converts a [B,C,T] tensor back into flat [B,T,C] data.
func transposeToBTC(t *nn.Tensor) []float64 {
	batch, channels, seqLen := t.Dim(0), t.Dim(1), t.Dim(2)
	flat := make([]float64, batch*seqLen*channels)
	for b := 0; b < batch; b++ {
		for ch := 0; ch < channels; ch++ {
			for ts := 0; ts < seqLen; ts++ {
				flat[(b*seqLen+ts)*channels+ch] = t.Data[(b*channels+ch)*seqLen+ts]
			}
		}
	}
	return flat
}

// PredictKPI runs the forward path: raw parameter trajectories [B,T,8] to
// KPI estimates [B,T,3]. Indices, if non-nil, reorder the 8 parameter
// channels before scaling. With returnRaw the output is denormalized back
// to KPI units; otherwise it stays in normalized space.
func (c *Context) PredictKPI(params [][][]float64, indices []int, returnRaw bool) ([][][]float64, error) {
	batch, seqLen, err := validateBatch(params, nn.ParamChannels)
	if err != nil {
		return nil, err
	}
	params, err = reorderChannels(params, indices, nn.ParamChannels)
	if err != nil {
		return nil, err
	}

	flat := flattenBTC(params, batch, seqLen, nn.ParamChannels)
	normalized := c.scaler.X.Apply(flat)
	z := transposeToBCT(normalized, batch, seqLen, nn.ParamChannels)

	pred, _, err := c.model.Forward(z)
	if err != nil {
		return nil, err
	}

	out := transposeToBTC(pred)
	if returnRaw {
		out = c.scaler.Y.Inverse(out)
	}
	return liftBTC(out, batch, seqLen, nn.KPIChannels), nil
}

// OptimizeRequest carries one inverse-optimization call. TargetKPI is raw
// [B,T,3]; Baseline, if non-nil, is raw [B,T,8] with the same batch and
// time extent. KPIIndices reorder the target's 3 channels. Progress, if
// set, is invoked once per optimizer step.
type OptimizeRequest struct {
	TargetKPI  [][][]float64
	Baseline   [][][]float64
	Config     inverse.Config
	KPIIndices []int
	ReturnRaw  bool
	Progress   inverse.Progress
}

// OptimizeResult is the optimized trajectory [B,T,8] plus the final loss
// terms.
type OptimizeResult struct {
	Params [][][]float64
	Losses inverse.Losses
}

// OptimizeParams runs the inverse path: find raw parameter trajectories
// whose predicted KPIs match the target. The whole solve is synchronous
// and owns its decision state; callers wanting a wall-clock bound must
// enforce it outside (a timeout discards all progress).
func (c *Context) OptimizeParams(req OptimizeRequest) (*OptimizeResult, error) {
	batch, seqLen, err := validateBatch(req.TargetKPI, nn.KPIChannels)
	if err != nil {
		return nil, err
	}
	target3, err := reorderChannels(req.TargetKPI, req.KPIIndices, nn.KPIChannels)
	if err != nil {
		return nil, err
	}

	flatTarget := flattenBTC(target3, batch, seqLen, nn.KPIChannels)
	target := transposeToBCT(c.scaler.Y.Apply(flatTarget), batch, seqLen, nn.KPIChannels)

	var baseline *nn.Tensor
	if req.Baseline != nil {
		bBatch, bSeq, err := validateBatch(req.Baseline, nn.ParamChannels)
		if err != nil {
			return nil, err
		}
		if bBatch != batch || bSeq != seqLen {
			return nil, shapeErrorf(nn.ParamChannels, "baseline [%d,%d,%d] does not match target [%d,%d,%d]",
				bBatch, bSeq, nn.ParamChannels, batch, seqLen, nn.KPIChannels)
		}
		flatBase := flattenBTC(req.Baseline, batch, seqLen, nn.ParamChannels)
		baseline = transposeToBCT(c.scaler.X.Apply(flatBase), batch, seqLen, nn.ParamChannels)
	}

	opts := []inverse.Option{inverse.WithLogger(c.log)}
	if req.Progress != nil {
		opts = append(opts, inverse.WithProgress(req.Progress))
	}
	opt, err := inverse.New(c.model, req.Config, opts...)
	if err != nil {
		return nil, err
	}

	decision, losses, err := opt.Optimize(target, baseline)
	if err != nil {
		return nil, err
	}

	out := transposeToBTC(decision)
	if req.ReturnRaw {
		out = c.scaler.X.Inverse(out)
	}
	return &OptimizeResult{
		Params: liftBTC(out, batch, seqLen, nn.ParamChannels),
		Losses: losses,
	}, nil
}
