package nn

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupportedCheckpoint is returned when a weight artifact matches none
// of the recognized layouts.
var ErrUnsupportedCheckpoint = errors.New("nn: unsupported checkpoint layout")

// CheckpointTensor is one named parameter in the weight artifact.
type CheckpointTensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Recognized checkpoint layouts. The artifact is a JSON object that is
// either split per sub-model or a flat training-time state dict:
//
//	(a) {"stgcn": {name: tensor}, "kpi_head": {name: tensor}}
//	(b) {"state_dict": {"stgcn.<name>": tensor, "kpi_head.<name>": tensor}}
//
// Layout (b) names may additionally carry a "module." wrapper prefix, which
// is stripped. Anything else fails with ErrUnsupportedCheckpoint naming the
// keys that were found.
const (
	layoutSplit     = "split"
	layoutStateDict = "state_dict"
)

// Parameter names inside each sub-model, matching the training checkpoint.
const (
	keyTemp1Weight = "block.temp1.conv.weight"
	keyTemp1Bias   = "block.temp1.conv.bias"
	keyTemp2Weight = "block.temp2.conv.weight"
	keyTemp2Bias   = "block.temp2.conv.bias"
	keyFinalWeight = "final.weight"
	keyFinalBias   = "final.bias"
	keyHeadWeight  = "weight"
	keyHeadBias    = "bias"
)

// LoadCheckpoint reads a weight artifact and installs the tensors into the
// predictor. A split-layout artifact without a kpi_head section keeps the
// head's random initialization with a warning, matching the training
// tooling's behavior; every other inconsistency is fatal.
func LoadCheckpoint(path string, p *Predictor, log *zap.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("nn: read checkpoint: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return fmt.Errorf("nn: parse checkpoint: %w", err)
	}

	switch layout := detectLayout(top); layout {
	case layoutSplit:
		return loadSplit(top, p, log)
	case layoutStateDict:
		return loadStateDict(top, p)
	default:
		return fmt.Errorf("%w: expected %q or %q sections, found keys %v",
			ErrUnsupportedCheckpoint, "stgcn", "state_dict", topLevelKeys(top))
	}
}

func detectLayout(top map[string]json.RawMessage) string {
	if _, ok := top["stgcn"]; ok {
		return layoutSplit
	}
	if _, ok := top["state_dict"]; ok {
		return layoutStateDict
	}
	return ""
}

func topLevelKeys(top map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(top))
	for k := range top {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func loadSplit(top map[string]json.RawMessage, p *Predictor, log *zap.Logger) error {
	var trunk map[string]CheckpointTensor
	if err := json.Unmarshal(top["stgcn"], &trunk); err != nil {
		return fmt.Errorf("nn: parse stgcn section: %w", err)
	}
	if err := installTrunk(trunk, p.STGCN); err != nil {
		return err
	}

	headRaw, ok := top["kpi_head"]
	if !ok {
		log.Warn("checkpoint has no kpi_head section, keeping random head init")
		return nil
	}
	var head map[string]CheckpointTensor
	if err := json.Unmarshal(headRaw, &head); err != nil {
		return fmt.Errorf("nn: parse kpi_head section: %w", err)
	}
	return installHead(head, p.Head)
}

func loadStateDict(top map[string]json.RawMessage, p *Predictor) error {
	var sd map[string]CheckpointTensor
	if err := json.Unmarshal(top["state_dict"], &sd); err != nil {
		return fmt.Errorf("nn: parse state_dict section: %w", err)
	}

	trunk := make(map[string]CheckpointTensor)
	head := make(map[string]CheckpointTensor)
	for name, tensor := range sd {
		name = strings.TrimPrefix(name, "module.")
		switch {
		case strings.HasPrefix(name, "stgcn."):
			trunk[strings.TrimPrefix(name, "stgcn.")] = tensor
		case strings.HasPrefix(name, "kpi_head."):
			head[strings.TrimPrefix(name, "kpi_head.")] = tensor
		}
	}
	if len(trunk) == 0 {
		return fmt.Errorf("%w: state_dict holds no stgcn.* entries", ErrUnsupportedCheckpoint)
	}
	if err := installTrunk(trunk, p.STGCN); err != nil {
		return err
	}
	if len(head) == 0 {
		return fmt.Errorf("%w: state_dict holds no kpi_head.* entries", ErrUnsupportedCheckpoint)
	}
	return installHead(head, p.Head)
}

func installTrunk(tensors map[string]CheckpointTensor, m *STGCN) error {
	if err := installConv(tensors, keyTemp1Weight, keyTemp1Bias, m.Temp1); err != nil {
		return err
	}
	if err := installConv(tensors, keyTemp2Weight, keyTemp2Bias, m.Temp2); err != nil {
		return err
	}
	return installPointwise(tensors, keyFinalWeight, keyFinalBias, m.Final)
}

func installHead(tensors map[string]CheckpointTensor, head *PointwiseConv) error {
	return installPointwise(tensors, keyHeadWeight, keyHeadBias, head)
}

func installConv(tensors map[string]CheckpointTensor, wKey, bKey string, c *TemporalConv) error {
	w, err := take(tensors, wKey, []int{c.OutChannels, c.InChannels, c.KernelSize, 1})
	if err != nil {
		return err
	}
	b, err := take(tensors, bKey, []int{c.OutChannels})
	if err != nil {
		return err
	}
	copy(c.Kernel, w.Data)
	copy(c.Bias, b.Data)
	return nil
}

func installPointwise(tensors map[string]CheckpointTensor, wKey, bKey string, p *PointwiseConv) error {
	w, err := take(tensors, wKey, []int{p.OutChannels, p.InChannels, 1, 1})
	if err != nil {
		return err
	}
	b, err := take(tensors, bKey, []int{p.OutChannels})
	if err != nil {
		return err
	}
	copy(p.Weight, w.Data)
	copy(p.Bias, b.Data)
	return nil
}

// take pulls a named tensor and verifies its shape. Trailing singleton axes
// in want may be absent in the stored shape (exporters disagree on keeping
// the 1-sized conv axes).
func take(tensors map[string]CheckpointTensor, name string, want []int) (CheckpointTensor, error) {
	t, ok := tensors[name]
	if !ok {
		return CheckpointTensor{}, fmt.Errorf("nn: checkpoint tensor %q missing", name)
	}
	n := 1
	for _, d := range want {
		n *= d
	}
	if len(t.Data) != n {
		return CheckpointTensor{}, fmt.Errorf("nn: checkpoint tensor %q has %d values, want %d (shape %v)",
			name, len(t.Data), n, want)
	}
	if !shapeCompatible(t.Shape, want) {
		return CheckpointTensor{}, fmt.Errorf("nn: checkpoint tensor %q has shape %v, want %v", name, t.Shape, want)
	}
	return t, nil
}

func shapeCompatible(got, want []int) bool {
	if len(got) > len(want) {
		return false
	}
	for i := range want {
		d := 1
		if i < len(got) {
			d = got[i]
		}
		if d != want[i] {
			return false
		}
	}
	return true
}
