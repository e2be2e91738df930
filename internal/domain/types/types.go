// Package types contains request and response shapes shared by the HTTP
// layer, the service and the command-line client.
package types

import "time"

// FormRequest is one formation request. Nil parameters fall back to the
// service defaults.
type FormRequest struct {
	Input          []byte
	ScoreThreshold *float64
	ChunkSize      *int
	// IdempotencyKey makes repeated asynchronous submissions collapse into one.
	IdempotencyKey string
}

// SubmitResponse acknowledges an asynchronous run submission.
type SubmitResponse struct {
	RunID     string `json:"run_id,omitempty"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// PredictRequest asks for the predicted score of one team.
type PredictRequest struct {
	Name          string `json:"name"`
	TechStackUsed string `json:"tech_stack_used"`
}

// PredictResponse carries a predicted team score.
type PredictResponse struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Stats is the service statistics payload served at /stats.
type Stats struct {
	RunsStored    int       `json:"runs_stored"`
	QueueLength   int       `json:"queue_length"`
	QueueCapacity int       `json:"queue_capacity"`
	Workers       int       `json:"workers"`
	PendingKeys   int64     `json:"idempotency_keys"`
	ModelFeatures int       `json:"model_features"`
	Store         string    `json:"store"`
	StartedAt     time.Time `json:"started_at"`
}
