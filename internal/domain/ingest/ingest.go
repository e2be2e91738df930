// Package ingest turns raw candidate tables into normalized candidate records.
//
// Ingestion never fails on bad rows: a row without an id is skipped, a
// repeated id is dropped, and a row with a bad score or no tags is kept but
// classified as not eligible.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/squadron/internal/domain/dedupe"
	"github.com/okian/squadron/internal/domain/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Header aliases per field, matched case-insensitively. When several
// columns match, the first non-empty value in alias order is used.
var (
	idAliases          = []string{"id"}
	scoreAliases       = []string{"profilescore", "score"}
	eligibilityAliases = []string{"eligibility", "eligible"}
)

// ErrRead wraps failures of the underlying reader.
var ErrRead = errors.New("read candidate table")

// Pool is the ingestion result of one input.
type Pool struct {
	// Records holds every kept record in input order.
	Records []model.Candidate
	Stats   model.IngestStats
	index   map[string]int
}

// Eligible returns, in input order, the records that have a numeric score
// and a non-empty tag set.
func (p *Pool) Eligible() []model.Candidate {
	out := make([]model.Candidate, 0, p.Stats.Eligible)
	for _, c := range p.Records {
		if c.Eligible() {
			out = append(out, c)
		}
	}
	return out
}

// Lookup finds a record by identifier, ignoring case.
func (p *Pool) Lookup(id string) (model.Candidate, bool) {
	i, ok := p.index[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return model.Candidate{}, false
	}
	return p.Records[i], true
}

// Len returns the number of kept records.
func (p *Pool) Len() int { return len(p.Records) }

// Read ingests everything r yields.
func Read(r io.Reader) (*Pool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return Parse(data)
}

// Parse ingests a delimited table held in memory.
func Parse(data []byte) (*Pool, error) {
	dialect := Sniff(data)
	pool := &Pool{index: map[string]int{}}
	pool.Stats.Delimiter = string(dialect.Delimiter)

	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.Comma = dialect.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	// Leading-space trimming would swallow empty cells of tab separated input.
	cr.TrimLeadingSpace = dialect.Delimiter != '\t'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return pool, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrRead, err)
	}
	cols := newColumns(header)

	ctx := context.Background()
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCaseFolding(), dedupe.WithMaxSize(0))
	row := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				pool.Stats.Malformed++
				continue
			}
			return nil, fmt.Errorf("%w: row %d: %w", ErrRead, row, err)
		}
		pool.Stats.Rows++

		id := cols.value(rec, cols.id)
		if id == "" {
			pool.Stats.MissingID++
			continue
		}
		if seen.SeenAndRecord(ctx, id) {
			pool.Stats.Duplicates++
			continue
		}

		score, ok := parseScore(cols.value(rec, cols.score))
		c := model.NewCandidate(id, score, ok, ParseTags(cols.value(rec, cols.eligibility)))
		c.Row = row
		pool.add(c)
	}
	return pool, nil
}

func (p *Pool) add(c model.Candidate) {
	p.index[c.Key] = len(p.Records)
	p.Records = append(p.Records, c)
	switch c.Class() {
	case model.ClassEligible:
		p.Stats.Eligible++
	case model.ClassNoScore:
		p.Stats.NoScore++
	case model.ClassNoTags:
		p.Stats.NoTags++
	}
}

// parseScore accepts finite decimal numbers only.
func parseScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// columns maps each field to the header positions that may carry it.
type columns struct {
	id, score, eligibility []int
}

func newColumns(header []string) columns {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}
	find := func(aliases []string) []int {
		var idx []int
		for _, a := range aliases {
			for i, n := range names {
				if n == a {
					idx = append(idx, i)
				}
			}
		}
		return idx
	}
	return columns{
		id:          find(idAliases),
		score:       find(scoreAliases),
		eligibility: find(eligibilityAliases),
	}
}

// value returns the first non-blank cell among positions, trimmed.
func (columns) value(rec []string, positions []int) string {
	for _, i := range positions {
		if i < len(rec) {
			if v := strings.TrimSpace(rec[i]); v != "" {
				return v
			}
		}
	}
	return ""
}
