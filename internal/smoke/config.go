// Package smoke drives a running squadron service with synthetic candidate
// sets and checks every returned team against the formation rules.
package smoke

import (
	"runtime"
	"time"
)

// Config holds the smoke run parameters.
type Config struct {
	BaseURL        string        // service base URL
	Candidates     int           // candidates per generated set
	Runs           int           // number of sets posted to /teams
	Workers        int           // concurrent requests
	ScoreThreshold float64       // threshold sent with every request
	ChunkSize      int           // team size sent with every request
	Timeout        time.Duration // per-request timeout
	Seed           uint64        // generator seed; runs use Seed+i
}

// DefaultConfig returns the parameters used by `teamctl smoke`.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:9080",
		Candidates:     200,
		Runs:           8,
		Workers:        runtime.NumCPU(),
		ScoreThreshold: 300,
		ChunkSize:      5,
		Timeout:        30 * time.Second,
		Seed:           1,
	}
}

// Stats summarizes a smoke run.
type Stats struct {
	RunsSubmitted int
	RunsFailed    int
	TeamsChecked  int
	Leftovers     int
	Violations    []Violation
	Duration      time.Duration
}

// Violation is one broken rule in one returned team.
type Violation struct {
	Run    int
	TeamID string
	Reason string
}
