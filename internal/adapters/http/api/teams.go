package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/okian/squadron/internal/adapters/csvio"
	"github.com/okian/squadron/internal/domain/model"
)

// Response headers describing a formation run.
const (
	headerRunID         = "X-Run-ID"
	headerTeamsFormed   = "X-Teams-Formed"
	headerLeftoverCount = "X-Leftover-Count"
)

// TeamsHandler runs formation synchronously.
type TeamsHandler struct {
	deps    TeamsDependencies
	uploads *uploads
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamsDependencies, up *uploads) *TeamsHandler {
	return &TeamsHandler{deps: deps, uploads: up}
}

// HandlePostTeams handles POST /teams. The candidate table comes as the
// multipart field "file" or as the raw body; the response is the team CSV.
func (h *TeamsHandler) HandlePostTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_teams"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}
	req, err := h.uploads.formRequest(w, r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	run, err := h.deps.FormTeams(r.Context(), req)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeTeams(w, op, run)
}

// writeTeams sends the run's teams as teams.csv with summary headers.
func writeTeams(w http.ResponseWriter, op string, run *model.Run) {
	var buf bytes.Buffer
	if err := csvio.WriteTeams(&buf, run.Teams); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.Header().Set(headerRunID, run.ID)
	w.Header().Set(headerTeamsFormed, strconv.Itoa(len(run.Teams)))
	w.Header().Set(headerLeftoverCount, strconv.Itoa(len(run.Leftovers)))
	writeCSV(w, "teams.csv", &buf)
}
