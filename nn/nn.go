// Package nn implements the spatio-temporal graph convolutional model used
// for KPI prediction: temporal 1-D convolutions per graph node, symmetric
// normalized graph propagation across nodes, and 1x1 channel projections.
//
// The network maps an 8-channel parameter trajectory onto a fixed 3-node
// graph and produces 3 KPI channels per timestep:
//
//	z [B,8,T] -> assemble [B,3,T,3] -> temp1 -> graph -> temp2 -> final
//	          -> node mean -> kpi head -> pred [B,3,T]
//
// All weights are read-only after load and may be shared across concurrent
// calls. Forward passes cache pre-activations so BackwardInput can replay
// the exact adjoint of each layer; only input gradients are computed, the
// weights are never trained here.
package nn

// Fixed deployment geometry: 8 controllable parameter channels spread over
// 3 graph nodes (channels 0-2, 3-5 and 6-7 plus a zero pad), 3 KPI outputs.
const (
	ParamChannels = 8
	KPIChannels   = 3
	NodeChannels  = 3
)
