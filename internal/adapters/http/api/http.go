// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/rooms"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/types"
)

const defaultMaxUploadBytes = 10 << 20

// TeamsDependencies runs synchronous formation.
type TeamsDependencies interface {
	FormTeams(ctx context.Context, req *types.FormRequest) (*model.Run, error)
}

// RunsDependencies submits and reads asynchronous runs.
type RunsDependencies interface {
	SubmitRun(ctx context.Context, req *types.FormRequest) (types.SubmitResponse, error)
	GetRun(ctx context.Context, id string) (*model.Run, error)
	FinishedRun(ctx context.Context, id string) (*model.Run, error)
}

// RoomsDependencies places team rosters into rooms.
type RoomsDependencies interface {
	AssignRooms(ctx context.Context, teams []string, roomCount, capacity int) (*rooms.Allocation, error)
}

// PredictDependencies predicts team scores.
type PredictDependencies interface {
	PredictScore(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error)
	PredictTable(ctx context.Context, r io.Reader) ([]scoring.Result, error)
}

// Dependencies bundles everything the handlers need.
type Dependencies interface {
	TeamsDependencies
	RunsDependencies
	RoomsDependencies
	PredictDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	teamsHandler   *TeamsHandler
	runsHandler    *RunsHandler
	roomsHandler   *RoomsHandler
	predictHandler *PredictHandler
}

// Option configures a Server.
type Option func(*uploads)

// WithMaxUploadBytes caps request bodies and multipart uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(u *uploads) {
		if n > 0 {
			u.maxBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	up := &uploads{maxBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(up)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		teamsHandler:   NewTeamsHandler(deps, up),
		runsHandler:    NewRunsHandler(deps, up),
		roomsHandler:   NewRoomsHandler(deps, up),
		predictHandler: NewPredictHandler(deps, up),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/teams", MetricsMiddleware(s.teamsHandler.HandlePostTeams, "teams"))
	mux.HandleFunc("/runs", MetricsMiddleware(s.runsHandler.HandlePostRun, "runs"))
	mux.HandleFunc("/runs/{id}", MetricsMiddleware(s.runsHandler.HandleGetRun, "run"))
	mux.HandleFunc("/runs/{id}/teams.csv", MetricsMiddleware(s.runsHandler.HandleGetRunCSV, "run_csv"))
	mux.HandleFunc("/rooms", MetricsMiddleware(s.roomsHandler.HandlePostRooms, "rooms"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/predict/upload", MetricsMiddleware(s.predictHandler.HandleUpload, "predict_upload"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeCSV sends body as a downloadable CSV file.
func writeCSV(w http.ResponseWriter, filename string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

func allowMethod(w http.ResponseWriter, r *http.Request, op, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, NewKind(op, ErrMethod))
	return false
}
