package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/squadron/internal/adapters/mq/queue"
	"github.com/okian/squadron/internal/adapters/repository"
	"github.com/okian/squadron/internal/domain/formation"
	"github.com/okian/squadron/internal/domain/ingest"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/types"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// Run outcomes recorded besides the halt reasons.
const outcomeFailed = "failed"

// Submission statuses.
const (
	statusAccepted = "accepted"
)

// Params resolves the request parameters against the configured defaults.
func (s *Service) Params(req *types.FormRequest) (model.Params, error) {
	p := model.Params{ScoreThreshold: s.cfg.ScoreThreshold, ChunkSize: s.cfg.ChunkSize}
	if req.ScoreThreshold != nil {
		p.ScoreThreshold = *req.ScoreThreshold
	}
	if req.ChunkSize != nil {
		p.ChunkSize = *req.ChunkSize
	}
	cfg := formation.Config{ScoreThreshold: p.ScoreThreshold, ChunkSize: p.ChunkSize}
	if err := cfg.Validate(); err != nil {
		return model.Params{}, fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
	}
	return p, nil
}

// FormTeams runs formation synchronously and stores the finished run.
func (s *Service) FormTeams(ctx context.Context, req *types.FormRequest) (*model.Run, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	p, err := s.Params(req)
	if err != nil {
		return nil, err
	}

	created := s.now()
	run, err := s.Execute(ctx, model.Job{RunID: s.newID(), Input: req.Input, Params: p, EnqueuedAt: created})
	if err != nil {
		return nil, err
	}
	run.Status = model.RunDone
	run.CreatedAt = created
	run.FinishedAt = s.now()

	if err := s.store.Save(ctx, run); err != nil {
		metrics.RecordStoreError("save")
		return nil, fmt.Errorf("store run %s: %w", run.ID, err)
	}
	return run, nil
}

// SubmitRun queues an asynchronous run. A repeated idempotency key is
// acknowledged with the run id of the first submission, without queuing.
func (s *Service) SubmitRun(ctx context.Context, req *types.FormRequest) (types.SubmitResponse, error) {
	if err := s.running(); err != nil {
		return types.SubmitResponse{}, err
	}
	p, err := s.Params(req)
	if err != nil {
		return types.SubmitResponse{}, err
	}

	runID := s.newID()
	key := req.IdempotencyKey
	if key != "" {
		if first, dup := s.deduper.Claim(ctx, key, runID); dup {
			s.logger.Debug(ctx, "duplicate submission",
				logger.String("idempotency_key", key), logger.String("run_id", first))
			return types.SubmitResponse{RunID: first, Status: statusAccepted, Duplicate: true}, nil
		}
	}
	release := func() {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
	}

	now := s.now()
	run := &model.Run{ID: runID, Status: model.RunQueued, Params: p, CreatedAt: now}
	if err := s.store.Save(ctx, run); err != nil {
		release()
		metrics.RecordStoreError("save")
		return types.SubmitResponse{}, fmt.Errorf("store run %s: %w", run.ID, err)
	}

	err = s.queue.Enqueue(ctx, model.Job{RunID: run.ID, Input: req.Input, Params: p, EnqueuedAt: now})
	if err != nil {
		release()
		run.Status = model.RunFailed
		run.Error = "not queued: " + err.Error()
		run.FinishedAt = s.now()
		if serr := s.store.Save(ctx, run); serr != nil {
			metrics.RecordStoreError("save")
		}
		if errors.Is(err, queue.ErrFull) {
			return types.SubmitResponse{}, fmt.Errorf("%w: %w", types.ErrBackpressure, err)
		}
		return types.SubmitResponse{}, fmt.Errorf("%w: %w", types.ErrUnavailable, err)
	}
	return types.SubmitResponse{RunID: run.ID, Status: string(model.RunQueued)}, nil
}

// GetRun returns a stored run.
func (s *Service) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	run, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", types.ErrNotFound, err)
	case err != nil:
		metrics.RecordStoreError("get")
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return run, nil
}

// FinishedRun returns a run only once it is done.
func (s *Service) FinishedRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunDone {
		return nil, fmt.Errorf("%w: %s is %s", types.ErrNotFinished, id, run.Status)
	}
	return run, nil
}

// Execute ingests the job input and forms teams. It implements worker.Runner;
// the returned run carries the result but no lifecycle fields.
func (s *Service) Execute(ctx context.Context, job model.Job) (*model.Run, error) { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()

	pool, err := ingest.Parse(job.Input)
	if err != nil {
		metrics.RecordRun(outcomeFailed, 0, 0, msSince(start))
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
	}
	recordIngest(pool.Stats)

	cfg := formation.Config{ScoreThreshold: job.Params.ScoreThreshold, ChunkSize: job.Params.ChunkSize}
	res, err := s.engine.Form(ctx, pool.Eligible(), cfg)
	if err != nil {
		metrics.RecordRun(outcomeFailed, 0, 0, msSince(start))
		if errors.Is(err, formation.ErrInvalidChunkSize) || errors.Is(err, formation.ErrInvalidThreshold) {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
		}
		return nil, err
	}

	run := &model.Run{
		ID:        job.RunID,
		Params:    job.Params,
		Teams:     make([]model.TeamRecord, len(res.Teams)),
		Leftovers: formation.Leftovers(pool.Records, res.Allocated),
		Ingest:    pool.Stats,
		Search:    res.Search,
		Halt:      res.Halt,
	}
	for i, t := range res.Teams {
		run.Teams[i] = t.Record()
	}

	recordSearch(res.Search)
	metrics.RecordRun(string(res.Halt), len(run.Teams), len(run.Leftovers), msSince(start))
	s.logRun(ctx, run)
	return run, nil
}

func (s *Service) logRun(ctx context.Context, run *model.Run) {
	l := s.logger
	l.Info(ctx, "formation finished",
		logger.String("run_id", run.ID),
		logger.Int("teams", len(run.Teams)),
		logger.Int("leftovers", len(run.Leftovers)),
		logger.String("halt", string(run.Halt)),
		logger.Int("eligible", run.Ingest.Eligible),
		logger.Bool("exhaustive_skipped", run.Search.ExhaustiveSkipped),
	)
	for _, lo := range run.Leftovers {
		l.Info(ctx, "leftover candidate",
			logger.String("run_id", run.ID),
			logger.String("id", lo.ID),
			logger.String("score", model.FormatScore(lo.Score)),
		)
	}
}

func recordIngest(st model.IngestStats) {
	metrics.RecordCandidates(string(model.ClassEligible), st.Eligible)
	metrics.RecordCandidates(string(model.ClassNoScore), st.NoScore)
	metrics.RecordCandidates(string(model.ClassNoTags), st.NoTags)
	metrics.RecordCandidates("duplicate", st.Duplicates)
	metrics.RecordCandidates("missing_id", st.MissingID)
	metrics.RecordCandidates("malformed", st.Malformed)
}

func recordSearch(st model.SearchStats) {
	for range st.Contiguous {
		metrics.RecordPhaseHit(formation.StrategyContiguous)
	}
	for range st.Exhaustive {
		metrics.RecordPhaseHit(formation.StrategyExhaustive)
	}
	if st.ExhaustiveSkipped {
		metrics.RecordExhaustiveSkipped()
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
