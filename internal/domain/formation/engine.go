package formation

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/squadron/internal/domain/eligibility"
	"github.com/okian/squadron/internal/domain/model"
)

// Engine forms teams greedily. It holds no run state and is safe for
// concurrent use.
type Engine struct {
	strategies []Strategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategies replaces the ordered strategy list.
func WithStrategies(s ...Strategy) Option {
	return func(e *Engine) {
		if len(s) > 0 {
			e.strategies = s
		}
	}
}

// NewEngine creates an engine using DefaultStrategies unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{strategies: DefaultStrategies()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one run.
type Result struct {
	Teams     []model.Team
	Allocated Allocation
	Halt      model.Halt
	Search    model.SearchStats
}

// Allocation is the run-scoped set of placed candidate keys.
type Allocation map[string]struct{}

// Has reports whether the candidate with key was placed into a team.
func (a Allocation) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Form partitions eligible into teams.
//
// Candidates are ordered by score, highest first, keeping input order among
// equal scores. Each round runs the strategies in order on the candidates
// not yet placed; the first group found becomes the next team. The run
// stops when fewer than ChunkSize candidates remain or when every
// strategy comes back empty. eligible itself is not modified.
func (e *Engine) Form(ctx context.Context, eligible []model.Candidate, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sorted := slices.Clone(eligible)
	slices.SortStableFunc(sorted, func(a, b model.Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	res := &Result{Allocated: Allocation{}}
	placed := make([]bool, len(sorted))
	available := make([]model.Candidate, 0, len(sorted))
	positions := make([]int, 0, len(sorted))

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("formation interrupted after %d teams: %w", len(res.Teams), err)
		}

		available, positions = available[:0], positions[:0]
		for i, c := range sorted {
			if !placed[i] {
				available = append(available, c)
				positions = append(positions, i)
			}
		}
		if len(available) < cfg.ChunkSize {
			res.Halt = model.HaltPoolExhausted
			return res, nil
		}

		picked, ok := e.search(available, cfg, &res.Search)
		if !ok {
			res.Halt = model.HaltNoValidGroup
			return res, nil
		}

		members := make([]model.Candidate, len(picked))
		for i, p := range picked {
			members[i] = available[p]
			placed[positions[p]] = true
			res.Allocated[available[p].Key] = struct{}{}
		}
		seq := len(res.Teams) + 1
		tag := eligibility.RepresentativeTag(members)
		res.Teams = append(res.Teams, model.Team{
			ID:      fmt.Sprintf("Team_%s%d", tag, seq),
			Tag:     tag,
			Seq:     seq,
			Members: members,
		})
	}
}

func (e *Engine) search(pool []model.Candidate, cfg Config, stats *model.SearchStats) ([]int, bool) {
	for _, s := range e.strategies {
		if !s.Applicable(len(pool)) {
			if s.Name() == StrategyExhaustive {
				stats.ExhaustiveSkipped = true
			}
			continue
		}
		picked, ok := s.Find(pool, cfg)
		if !ok {
			continue
		}
		switch s.Name() {
		case StrategyContiguous:
			stats.Contiguous++
		case StrategyExhaustive:
			stats.Exhaustive++
		}
		return picked, true
	}
	return nil, false
}
