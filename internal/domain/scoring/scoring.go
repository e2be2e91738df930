// Package scoring predicts a team's score from the technologies it uses.
//
// The predictor is a regression tree trained on a table of 0/1 technology
// columns and a score column. Predictions are rounded half to even.
package scoring

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
)

// Input is one team to score.
type Input struct {
	Name string
	// Stack lists technologies separated by whitespace or commas.
	Stack string
}

// Result contains the predicted score for a team.
type Result struct {
	Name  string
	Score int
}

// Scorer predicts team scores.
type Scorer interface {
	// Score predicts one team from its technology list.
	Score(ctx context.Context, in Input) (Result, error)
	// ScoreTable predicts every row of a feature table.
	ScoreTable(ctx context.Context, r io.Reader) ([]Result, error)
	// Features returns the model's feature names in column order.
	Features() []string
}

// TreeScorer implements Scorer with a fitted regression tree.
type TreeScorer struct {
	features []string
	lower    []string
	tree     *tree
	parallel int
}

// Option applies a configuration option to the TreeScorer.
type Option func(*TreeScorer)

// WithParallelism bounds the goroutines ScoreTable uses.
func WithParallelism(n int) Option {
	return func(s *TreeScorer) {
		if n > 0 {
			s.parallel = n
		}
	}
}

func newTreeScorer(features []string, t *tree, opts ...Option) *TreeScorer {
	s := &TreeScorer{features: features, tree: t, parallel: runtime.NumCPU()}
	s.lower = make([]string, len(features))
	for i, f := range features {
		s.lower[i] = strings.ToLower(f)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Train fits a scorer on a training CSV.
func Train(r io.Reader, opts ...Option) (*TreeScorer, error) {
	ds, err := readDataset(r)
	if err != nil {
		return nil, err
	}
	return newTreeScorer(ds.features, fitTree(ds.X, ds.y), opts...), nil
}

// Features implements Scorer.
func (s *TreeScorer) Features() []string {
	return append([]string(nil), s.features...)
}

// Vector maps a technology list onto the feature vector. Each token sets
// the first feature whose lower-cased name contains it or is contained in
// it; tokens matching nothing are ignored.
func (s *TreeScorer) Vector(stack string) []float64 {
	x := make([]float64, len(s.features))
	for _, tok := range tokens(stack) {
		for i, f := range s.lower {
			if strings.Contains(f, tok) || strings.Contains(tok, f) {
				x[i] = 1
				break
			}
		}
	}
	return x
}

// Score implements Scorer.
func (s *TreeScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("score %q: %w", in.Name, err)
	}
	return Result{Name: in.Name, Score: round(s.tree.predict(s.Vector(in.Stack)))}, nil
}

// ScoreTable implements Scorer.
//
// Columns are aligned to the model's features by name: missing features
// are 0 and unknown columns are ignored. The team name comes from the
// first of "team name", "team_name" or "team"; without one, rows are named
// "Team 1", "Team 2", ...
func (s *TreeScorer) ScoreTable(ctx context.Context, r io.Reader) ([]Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read feature table: %w", err)
	}
	if len(records) == 0 {
		return []Result{}, nil
	}
	header, rows := records[0], records[1:]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	nameCol := findColumn(header, teamNameColumns...)
	cols := make([]int, len(s.features))
	for i, f := range s.features {
		cols[i] = findColumn(header, f)
	}

	out := make([]Result, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, rec := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x := make([]float64, len(s.features))
			for j, c := range cols {
				if c < 0 || c >= len(rec) {
					continue
				}
				v, err := parseCell(rec[c])
				if err != nil {
					return fmt.Errorf("row %d column %q: %w", i+2, header[c], err)
				}
				x[j] = v
			}
			name := "Team " + strconv.Itoa(i+1)
			if nameCol >= 0 && nameCol < len(rec) {
				name = rec[nameCol]
			}
			out[i] = Result{Name: name, Score: round(s.tree.predict(x))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func tokens(stack string) []string {
	fields := strings.FieldsFunc(stack, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// round rounds half to even and clamps to the int32 range.
func round(v float64) int {
	r := math.RoundToEven(v)
	switch {
	case math.IsNaN(r):
		return 0
	case r > math.MaxInt32:
		return math.MaxInt32
	case r < math.MinInt32:
		return math.MinInt32
	}
	return int(r)
}

// IsInputError reports whether err was caused by bad caller data rather
// than an internal failure.
func IsInputError(err error) bool {
	var perr *csv.ParseError
	return errors.Is(err, ErrNonNumeric) || errors.Is(err, ErrNoTarget) ||
		errors.Is(err, ErrEmptyDataset) || errors.As(err, &perr)
}
