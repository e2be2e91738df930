package smoke

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/squadron/pkg/logger"
)

// ErrViolations is returned by Run when any returned team broke a rule.
var ErrViolations = errors.New("team rule violations")

// Run checks service health, posts cfg.Runs generated sets concurrently and
// verifies every returned team. Request failures are counted, not fatal.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if cfg.Runs < 1 || cfg.Candidates < 1 || cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("runs, candidates and chunk size must be positive")
	}
	workers := max(cfg.Workers, 1)
	log := logger.Named("smoke")
	start := time.Now()

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("runs", cfg.Runs),
		logger.Int("candidates", cfg.Candidates),
		logger.Int("workers", workers),
		logger.Float64("threshold", cfg.ScoreThreshold),
		logger.Int("chunkSize", cfg.ChunkSize))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var (
		mu    sync.Mutex
		stats = &Stats{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cfg.Runs {
		g.Go(func() error {
			set := Generate(cfg.Seed+uint64(i), cfg.Candidates)
			teams, err := client.FormTeams(gctx, set.CSV, cfg.ScoreThreshold, cfg.ChunkSize)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn(gctx, "run failed", logger.Int("run", i), logger.Error(err))
				mu.Lock()
				stats.RunsSubmitted++
				stats.RunsFailed++
				mu.Unlock()
				return nil
			}
			violations := Verify(i, set, teams.Rows, cfg.ScoreThreshold, cfg.ChunkSize)
			log.Debug(gctx, "run verified",
				logger.Int("run", i),
				logger.String("runID", teams.RunID),
				logger.Int("teams", len(teams.Rows)),
				logger.Int("violations", len(violations)))

			mu.Lock()
			stats.RunsSubmitted++
			stats.TeamsChecked += len(teams.Rows)
			stats.Leftovers += teams.Leftovers
			stats.Violations = append(stats.Violations, violations...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)

	for _, v := range stats.Violations {
		log.Error(ctx, "team violation", logger.Int("run", v.Run), logger.String("team", v.TeamID), logger.String("reason", v.Reason))
	}
	log.Info(ctx, "smoke run completed",
		logger.Int("submitted", stats.RunsSubmitted),
		logger.Int("failed", stats.RunsFailed),
		logger.Int("teams", stats.TeamsChecked),
		logger.Int("leftovers", stats.Leftovers),
		logger.Int("violations", len(stats.Violations)),
		logger.Duration("duration", stats.Duration))

	if len(stats.Violations) > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, len(stats.Violations))
	}
	return stats, nil
}
