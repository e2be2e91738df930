package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/okian/squadron/internal/adapters/csvio"
	"github.com/okian/squadron/internal/domain/types"
)

// PredictHandler serves score predictions.
type PredictHandler struct {
	deps    PredictDependencies
	uploads *uploads
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies, up *uploads) *PredictHandler {
	return &PredictHandler{deps: deps, uploads: up}
}

// HandlePredict handles POST /predict.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.maxBytes)

	var req types.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.uploads.readError(op, err))
		return
	}
	res, err := h.deps.PredictScore(r.Context(), req)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleUpload handles POST /predict/upload and answers predicted_scores.csv.
func (h *PredictHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_upload"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	data, err := h.uploads.file(w, r, op, fieldFile)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := h.deps.PredictTable(r.Context(), bytes.NewReader(data))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}

	var buf bytes.Buffer
	if err := csvio.WritePredictions(&buf, results); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeCSV(w, "predicted_scores.csv", &buf)
}
