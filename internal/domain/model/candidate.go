// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"strings"
)

// Candidate is one normalized input row.
type Candidate struct {
	ID       string   // identifier as written in the input, trimmed
	Key      string   // lower-cased ID; the uniqueness key
	Score    float64  // meaningful only when HasScore is true
	HasScore bool     // false when the score cell was missing or non-numeric
	Tags     []string // sorted, de-duplicated, lower-cased eligibility tags
	Row      int      // 1-based data row the candidate came from
}

// NewCandidate normalizes id and tags into a Candidate.
func NewCandidate(id string, score float64, hasScore bool, tags []string) Candidate {
	id = strings.TrimSpace(id)
	return Candidate{
		ID:       id,
		Key:      strings.ToLower(id),
		Score:    score,
		HasScore: hasScore,
		Tags:     NormalizeTags(tags),
	}
}

// Eligible reports whether the candidate may be placed into a team.
func (c Candidate) Eligible() bool {
	return c.HasScore && len(c.Tags) > 0
}

// HasTag reports whether tag (lower-case) is one of the candidate's tags.
func (c Candidate) HasTag(tag string) bool {
	_, ok := slices.BinarySearch(c.Tags, tag)
	return ok
}

// Class names the ingestion classification of the candidate.
func (c Candidate) Class() Class {
	switch {
	case !c.HasScore:
		return ClassNoScore
	case len(c.Tags) == 0:
		return ClassNoTags
	default:
		return ClassEligible
	}
}

// Class is the ingestion classification of a candidate record.
type Class string

const (
	ClassEligible Class = "eligible"
	ClassNoScore  Class = "no_score"
	ClassNoTags   Class = "no_tags"
)

// NormalizeTags lower-cases, drops empties, sorts and de-duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
