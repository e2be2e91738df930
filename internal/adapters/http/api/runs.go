package api

import (
	"net/http"
	"strings"
)

// RunsHandler handles asynchronous runs.
type RunsHandler struct {
	deps    RunsDependencies
	uploads *uploads
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunsDependencies, up *uploads) *RunsHandler {
	return &RunsHandler{deps: deps, uploads: up}
}

// HandlePostRun handles POST /runs. A repeated Idempotency-Key is
// acknowledged with 200 and nothing is queued; a full queue answers 429.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_run"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	req, err := h.uploads.formRequest(w, r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	ack, err := h.deps.SubmitRun(r.Context(), req)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

// HandleGetRun handles GET /runs/{id}.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	if !allowMethod(w, r, op, http.MethodGet) {
		return
	}
	id, ok := runID(w, r, op)
	if !ok {
		return
	}
	run, err := h.deps.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleGetRunCSV handles GET /runs/{id}/teams.csv.
func (h *RunsHandler) HandleGetRunCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run_csv"
	if !allowMethod(w, r, op, http.MethodGet) {
		return
	}
	id, ok := runID(w, r, op)
	if !ok {
		return
	}
	run, err := h.deps.FinishedRun(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeTeams(w, op, run)
}

func runID(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return "", false
	}
	return id, true
}
