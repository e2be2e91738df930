package model

import (
	"math"
	"strconv"
	"strings"
)

// MemberSeparator joins member names and scores in rendered team rows.
const MemberSeparator = "  "

// Team is a confirmed group of candidates. It is immutable once built.
type Team struct {
	ID      string // Team_<TAG><n>
	Tag     string // representative tag, upper-cased
	Seq     int    // 1-based position in the run
	Members []Candidate
}

// Total returns the aggregate member score.
func (t Team) Total() float64 {
	var sum float64
	for _, m := range t.Members {
		sum += m.Score
	}
	return sum
}

// Record flattens the team into its persisted and rendered form.
func (t Team) Record() TeamRecord {
	r := TeamRecord{
		TeamID:  t.ID,
		Tag:     t.Tag,
		Members: make([]string, len(t.Members)),
		Scores:  make([]float64, len(t.Members)),
		Total:   t.Total(),
	}
	for i, m := range t.Members {
		r.Members[i] = m.ID
		r.Scores[i] = m.Score
	}
	return r
}

// TeamRecord is the storage and output shape of a team.
type TeamRecord struct {
	TeamID  string    `json:"team_id"`
	Tag     string    `json:"tag"`
	Members []string  `json:"members"`
	Scores  []float64 `json:"scores"`
	Total   float64   `json:"total"`
}

// ParticipantNames renders members joined by MemberSeparator.
func (r TeamRecord) ParticipantNames() string {
	return strings.Join(r.Members, MemberSeparator)
}

// ScoreList renders member scores joined by MemberSeparator.
func (r TeamRecord) ScoreList() string {
	parts := make([]string, len(r.Scores))
	for i, s := range r.Scores {
		parts[i] = FormatScore(s)
	}
	return strings.Join(parts, MemberSeparator)
}

// FormatScore renders integral scores without decimals and everything
// else with two decimal places.
func FormatScore(s float64) string {
	if s == math.Trunc(s) && !math.IsInf(s, 0) {
		if s == 0 {
			return "0"
		}
		return strconv.FormatFloat(s, 'f', 0, 64)
	}
	return strconv.FormatFloat(s, 'f', 2, 64)
}
