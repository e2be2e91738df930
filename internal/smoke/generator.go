package smoke

import (
	"bytes"
	"encoding/csv"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/squadron/internal/domain/ingest"
	"github.com/okian/squadron/internal/domain/model"
)

var tagPool = []string{"ai", "web", "mobile", "cloud", "data", "security", "iot", "games"}

// Shares of generated rows that are deliberately not eligible.
const (
	noScoreEvery = 17
	noTagsEvery  = 13
)

// Set is one generated candidate table and its parsed view.
type Set struct {
	CSV        []byte
	Candidates map[string]model.Candidate
}

// Generate builds n candidates. Most carry a two-decimal score between 0
// and 150 and one to three tags; a few lack a score or tags.
func Generate(seed uint64, n int) *Set {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "score", "eligibility"})

	set := &Set{Candidates: make(map[string]model.Candidate, n)}
	for i := range n {
		id := uuid.NewString()[:8] + "-" + strconv.Itoa(i)

		score, hasScore := float64(rng.IntN(15000))/100, true
		rawScore := strconv.FormatFloat(score, 'f', 2, 64)
		if i%noScoreEvery == noScoreEvery-1 {
			score, hasScore, rawScore = 0, false, ""
		}

		var tags []string
		if i%noTagsEvery != noTagsEvery-1 {
			for range 1 + rng.IntN(3) {
				tags = append(tags, tagPool[rng.IntN(len(tagPool))])
			}
		}
		rawTags := strings.Join(tags, ",")

		_ = w.Write([]string{id, rawScore, rawTags})
		set.Candidates[id] = model.NewCandidate(id, score, hasScore, ingest.ParseTags(rawTags))
	}
	w.Flush()
	set.CSV = buf.Bytes()
	return set
}
