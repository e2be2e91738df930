package model

import "time"

// RunStatus is the lifecycle state of a formation run.
type RunStatus string

const (
	RunQueued  RunStatus = "queued"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// Finished reports whether the run reached a terminal state.
func (s RunStatus) Finished() bool {
	return s == RunDone || s == RunFailed
}

// Params are the per-run formation parameters.
type Params struct {
	ScoreThreshold float64 `json:"score_threshold"`
	ChunkSize      int     `json:"chunk_size"`
}

// Halt names why formation stopped.
type Halt string

const (
	// HaltPoolExhausted means fewer than chunk size candidates were left.
	HaltPoolExhausted Halt = "pool_exhausted"
	// HaltNoValidGroup means every search strategy failed on the current pool.
	HaltNoValidGroup Halt = "no_valid_group"
)

// Leftover is a scored candidate that was not placed into a team.
type Leftover struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// IngestStats summarizes how ingestion classified the input rows.
type IngestStats struct {
	Delimiter  string `json:"delimiter"`
	Rows       int    `json:"rows"`
	Eligible   int    `json:"eligible"`
	NoScore    int    `json:"no_score"`
	NoTags     int    `json:"no_tags"`
	Duplicates int    `json:"duplicates"`
	MissingID  int    `json:"missing_id"`
	Malformed  int    `json:"malformed"`
}

// SearchStats counts which strategy produced each team.
type SearchStats struct {
	Contiguous        int  `json:"contiguous"`
	Exhaustive        int  `json:"exhaustive"`
	ExhaustiveSkipped bool `json:"exhaustive_skipped"`
}

// Run is the persisted record of one formation run.
type Run struct {
	ID         string       `json:"run_id"`
	Status     RunStatus    `json:"status"`
	Params     Params       `json:"params"`
	Teams      []TeamRecord `json:"teams"`
	Leftovers  []Leftover   `json:"leftovers"`
	Ingest     IngestStats  `json:"ingest"`
	Search     SearchStats  `json:"search"`
	Halt       Halt         `json:"halt,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
}

// Job is one queued asynchronous formation request.
type Job struct {
	RunID      string
	Input      []byte
	Params     Params
	EnqueuedAt time.Time
}
