package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// STGCN is the forward trunk: temporal filter, graph propagation, temporal
// filter, 1x1 projection. Input and output feature arrays are [B,C,T,V].
type STGCN struct {
	Temp1 *TemporalConv
	Graph *GraphConv
	Temp2 *TemporalConv
	Final *PointwiseConv
}

// NewSTGCN builds a randomly initialized trunk for the given geometry. The
// adjacency matrix fixes the node count; kernelSize must be odd.
func NewSTGCN(inChannels, hidChannels, kernelSize int, adj *mat.Dense) (*STGCN, error) {
	if kernelSize%2 == 0 {
		return nil, fmt.Errorf("nn: temporal kernel size must be odd, got %d", kernelSize)
	}
	graph, err := NewGraphConv(adj)
	if err != nil {
		return nil, err
	}
	return &STGCN{
		Temp1: NewTemporalConv(inChannels, hidChannels, kernelSize),
		Graph: graph,
		Temp2: NewTemporalConv(hidChannels, hidChannels, kernelSize),
		Final: NewPointwiseConv(hidChannels, hidChannels),
	}, nil
}

// Predictor couples the STGCN trunk with the KPI head. One Predictor is
// shared read-only across concurrent calls; per-call state lives in the
// PredictorCache returned by Forward.
type Predictor struct {
	STGCN *STGCN
	Head  *PointwiseConv // 1x1, hidden -> KPIChannels
}

// NewPredictor builds a randomly initialized model with the deployment's
// fixed channel mapping (8 parameter channels onto a 3-node graph).
func NewPredictor(hidChannels, kernelSize int, adj *mat.Dense) (*Predictor, error) {
	trunk, err := NewSTGCN(NodeChannels, hidChannels, kernelSize, adj)
	if err != nil {
		return nil, err
	}
	return &Predictor{
		STGCN: trunk,
		Head:  NewPointwiseConv(hidChannels, KPIChannels),
	}, nil
}

// PredictorCache holds the intermediate activations of one forward pass,
// consumed by BackwardInput. It is owned by a single call.
type PredictorCache struct {
	x4     *Tensor // assembled input [B,3,T,V]
	pre1   *Tensor
	post1  *Tensor
	prop   *Tensor
	pre2   *Tensor
	post2  *Tensor
	preFin *Tensor
	feat   *Tensor // trunk output [B,H,T,V]
	pooled *Tensor // node mean [B,H,T,1]
	preHd  *Tensor
}

// AssembleNodes maps a normalized parameter array [B,8,T] onto the graph as
// [B,3,T,3]: channels 0-2 become node 0, 3-5 node 1, and 6-7 plus a zero
// pad node 2.
func AssembleNodes(z *Tensor) (*Tensor, error) {
	if len(z.Shape) != 3 || z.Dim(1) != ParamChannels {
		return nil, fmt.Errorf("nn: expect [B,%d,T] parameter array, got shape %v", ParamChannels, z.Shape)
	}
	batch, seqLen := z.Dim(0), z.Dim(2)
	nodes := ParamChannels/NodeChannels + 1 // 2 full nodes + the padded one

	x4 := NewTensor(batch, NodeChannels, seqLen, nodes)
	for b := 0; b < batch; b++ {
		for ch := 0; ch < ParamChannels; ch++ {
			v := ch / NodeChannels
			c := ch % NodeChannels
			for t := 0; t < seqLen; t++ {
				x4.Data[((b*NodeChannels+c)*seqLen+t)*nodes+v] = z.Data[(b*ParamChannels+ch)*seqLen+t]
			}
		}
	}
	return x4, nil
}

// ScatterNodes is the adjoint of AssembleNodes: it gathers a node-feature
// gradient [B,3,T,3] back into parameter-channel layout [B,8,T]. The pad
// channel's gradient is dropped.
func ScatterNodes(grad *Tensor) *Tensor {
	batch, seqLen, nodes := grad.Dim(0), grad.Dim(2), grad.Dim(3)

	z := NewTensor(batch, ParamChannels, seqLen)
	for b := 0; b < batch; b++ {
		for ch := 0; ch < ParamChannels; ch++ {
			v := ch / NodeChannels
			c := ch % NodeChannels
			for t := 0; t < seqLen; t++ {
				z.Data[(b*ParamChannels+ch)*seqLen+t] = grad.Data[((b*NodeChannels+c)*seqLen+t)*nodes+v]
			}
		}
	}
	return z
}

// Forward maps a normalized decision array [B,8,T] to KPI estimates
// [B,3,T]. The trunk output is pooled by averaging over the node axis
// before the head projection, so every node contributes to each KPI
// estimate.
func (p *Predictor) Forward(z *Tensor) (*Tensor, *PredictorCache, error) {
	x4, err := AssembleNodes(z)
	if err != nil {
		return nil, nil, err
	}

	cache := &PredictorCache{x4: x4}
	cache.pre1, cache.post1 = p.STGCN.Temp1.Forward(x4)
	cache.prop = p.STGCN.Graph.Forward(cache.post1)
	cache.pre2, cache.post2 = p.STGCN.Temp2.Forward(cache.prop)
	cache.preFin, cache.feat = p.STGCN.Final.Forward(cache.post2)

	batch, hid, seqLen, nodes := cache.feat.Dim(0), cache.feat.Dim(1), cache.feat.Dim(2), cache.feat.Dim(3)
	cache.pooled = NewTensor(batch, hid, seqLen, 1)
	for i := 0; i < batch*hid*seqLen; i++ {
		sum := 0.0
		for v := 0; v < nodes; v++ {
			sum += cache.feat.Data[i*nodes+v]
		}
		cache.pooled.Data[i] = sum / float64(nodes)
	}

	var pred4 *Tensor
	cache.preHd, pred4 = p.Head.Forward(cache.pooled)
	pred := pred4.Reshape(batch, KPIChannels, seqLen)
	return pred, cache, nil
}

// BackwardInput propagates dL/dpred [B,3,T] through the whole stack and
// returns dL/dz [B,8,T].
func (p *Predictor) BackwardInput(gradPred *Tensor, cache *PredictorCache) *Tensor {
	batch, seqLen := gradPred.Dim(0), gradPred.Dim(2)
	nodes := cache.feat.Dim(3)
	hid := cache.feat.Dim(1)

	g4 := gradPred.Reshape(batch, KPIChannels, seqLen, 1)
	gradPooled := p.Head.BackwardInput(g4, cache.preHd)

	// Node-mean adjoint: each node receives 1/V of the pooled gradient.
	gradFeat := NewTensor(batch, hid, seqLen, nodes)
	inv := 1.0 / float64(nodes)
	for i := 0; i < batch*hid*seqLen; i++ {
		g := gradPooled.Data[i] * inv
		for v := 0; v < nodes; v++ {
			gradFeat.Data[i*nodes+v] = g
		}
	}

	grad := p.STGCN.Final.BackwardInput(gradFeat, cache.preFin)
	grad = p.STGCN.Temp2.BackwardInput(grad, cache.pre2)
	grad = p.STGCN.Graph.BackwardInput(grad)
	grad = p.STGCN.Temp1.BackwardInput(grad, cache.pre1)
	return ScatterNodes(grad)
}
