// Package server exposes the forward and inverse operations over a small
// JSON HTTP API mirroring the original service surface:
//
//	POST /predict_kpi     {params, param_indices?, return_raw?}      -> {kpi}
//	POST /optimize_params {target_kpi, orig_params?, hyperparams...} -> {params}
//	GET  /healthz
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openkpi/stgcn/engine"
	"github.com/openkpi/stgcn/inverse"
)

// Server dispatches API requests onto a shared inference context.
type Server struct {
	ctx *engine.Context
	log *zap.Logger
}

// New wires the handlers and returns an http.Server listening on addr. The
// write timeout bounds a whole optimize call; when it fires, all progress
// of that call is discarded.
func New(ctx *engine.Context, log *zap.Logger, addr string, optimizeTimeout time.Duration) *http.Server {
	s := &Server{ctx: ctx, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict_kpi", s.handlePredict)
	mux.HandleFunc("POST /optimize_params", s.handleOptimize)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: optimizeTimeout,
	}
}

type predictRequest struct {
	Params       json.RawMessage `json:"params"`
	ParamIndices []int           `json:"param_indices"`
	ReturnRaw    *bool           `json:"return_raw"`
}

type predictResponse struct {
	RequestID string          `json:"request_id"`
	KPI       [][][]float64   `json:"kpi"`
}

type optimizeRequest struct {
	TargetKPI  json.RawMessage `json:"target_kpi"`
	OrigParams json.RawMessage `json:"orig_params"`
	KPIIndices []int           `json:"kpi_indices"`
	ReturnRaw  *bool           `json:"return_raw"`

	// Hyperparameters pass through the validator: bad entries are dropped
	// with a diagnostic and defaults apply.
	Alpha any `json:"alpha"`
	Beta  any `json:"beta"`
	Gamma any `json:"gamma"`
	Steps any `json:"steps"`
	LR    any `json:"lr"`
	ZMin  any `json:"zmin"`
	ZMax  any `json:"zmax"`
}

type optimizeResponse struct {
	RequestID string        `json:"request_id"`
	Params    [][][]float64 `json:"params"`
	Losses    lossReport    `json:"losses"`
}

type lossReport struct {
	Fit    float64 `json:"fit"`
	Dev    float64 `json:"dev"`
	Smooth float64 `json:"smooth"`
	Total  float64 `json:"total"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	log := s.log.With(zap.String("request_id", id))

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode", err)
		return
	}
	params, err := decodeBatched(req.Params, "params")
	if err != nil {
		writeError(w, http.StatusBadRequest, "decode", err)
		return
	}

	start := time.Now()
	kpi, err := s.ctx.PredictKPI(params, req.ParamIndices, boolOr(req.ReturnRaw, true))
	if err != nil {
		s.writeOperationError(w, log, err)
		return
	}
	log.Info("predict_kpi served",
		zap.Int("batch", len(kpi)),
		zap.Duration("elapsed", time.Since(start)))
	writeJSON(w, http.StatusOK, predictResponse{RequestID: id, KPI: kpi})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	log := s.log.With(zap.String("request_id", id))

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode", err)
		return
	}
	target, err := decodeBatched(req.TargetKPI, "target_kpi")
	if err != nil {
		writeError(w, http.StatusBadRequest, "decode", err)
		return
	}
	var baseline [][][]float64
	if len(req.OrigParams) > 0 && string(req.OrigParams) != "null" {
		baseline, err = decodeBatched(req.OrigParams, "orig_params")
		if err != nil {
			writeError(w, http.StatusBadRequest, "decode", err)
			return
		}
	}

	cfg := inverse.ApplyOverrides(inverse.DefaultConfig(), inverse.Sanitize(hyperparams(&req), log))

	start := time.Now()
	res, err := s.ctx.OptimizeParams(engine.OptimizeRequest{
		TargetKPI:  target,
		Baseline:   baseline,
		Config:     cfg,
		KPIIndices: req.KPIIndices,
		ReturnRaw:  boolOr(req.ReturnRaw, true),
	})
	if err != nil {
		s.writeOperationError(w, log, err)
		return
	}
	log.Info("optimize_params served",
		zap.Int("batch", len(res.Params)),
		zap.Int("steps", cfg.Steps),
		zap.Float64("fit", res.Losses.Fit),
		zap.Duration("elapsed", time.Since(start)))
	writeJSON(w, http.StatusOK, optimizeResponse{
		RequestID: id,
		Params:    res.Params,
		Losses:    lossReport(res.Losses),
	})
}

// hyperparams collects the raw hyperparameter fields that were present in
// the request body.
func hyperparams(req *optimizeRequest) map[string]any {
	raw := make(map[string]any)
	for key, v := range map[string]any{
		"alpha": req.Alpha, "beta": req.Beta, "gamma": req.Gamma,
		"steps": req.Steps, "lr": req.LR, "zmin": req.ZMin, "zmax": req.ZMax,
	} {
		if v != nil {
			raw[key] = v
		}
	}
	return raw
}

// decodeBatched accepts either [T,C] or [B,T,C] JSON arrays, promoting the
// former to a batch of one.
func decodeBatched(raw json.RawMessage, field string) ([][][]float64, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing %q", field)
	}
	var batched [][][]float64
	if err := json.Unmarshal(raw, &batched); err == nil {
		return batched, nil
	}
	var single [][]float64
	if err := json.Unmarshal(raw, &single); err == nil {
		return engine.PromoteBatch(single), nil
	}
	return nil, fmt.Errorf("%q must be a [T,C] or [B,T,C] numeric array", field)
}

func (s *Server) writeOperationError(w http.ResponseWriter, log *zap.Logger, err error) {
	var shapeErr *engine.ShapeError
	if errors.As(err, &shapeErr) {
		log.Warn("rejected request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{errorBody{Kind: "shape", Message: err.Error()}})
		return
	}
	log.Error("operation failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{errorBody{Kind: "internal", Message: err.Error()}})
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorResponse{errorBody{Kind: kind, Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
