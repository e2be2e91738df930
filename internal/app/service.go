// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the worker pool.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/squadron/internal/adapters/mq/queue"
	"github.com/okian/squadron/internal/adapters/mq/worker"
	"github.com/okian/squadron/internal/adapters/repository"
	"github.com/okian/squadron/internal/config"
	"github.com/okian/squadron/internal/domain/dedupe"
	"github.com/okian/squadron/internal/domain/formation"
	"github.com/okian/squadron/internal/domain/rooms"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/types"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// ErrNotStarted is returned by operations that need Start to have run.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies of the team formation system.
type Service struct {
	mu sync.RWMutex

	cfg config.Config

	// Core components
	store     repository.Store
	storeKind string
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	engine    *formation.Engine
	assigner  *rooms.Assigner
	scorer    scoring.Scorer

	newID func() string
	now   func() time.Time

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = *cfg
		}
	}
}

// WithStore injects a run store instead of building one from the configuration.
func WithStore(store repository.Store, kind string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.storeKind = kind
		}
	}
}

// WithScorer injects a score predictor instead of loading or training one.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithEngine replaces the formation engine.
func WithEngine(engine *formation.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides how run identifiers are minted.
func WithIDGenerator(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. Components are created by Start. The global
// logger must be initialized unless WithLogger is given.
func New(ctx context.Context, opts ...Option) *Service {
	s := &Service{
		cfg:    *config.New(ctx),
		engine: formation.NewEngine(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.assigner = rooms.NewAssigner(rooms.WithLabelPrefix(s.cfg.RoomLabelPrefix))
	return s
}

// Start opens the run store, prepares the predictor and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting formation service...")

	if s.store == nil {
		s.store, s.storeKind = s.openStore(ctx)
	}
	if s.scorer == nil {
		scorer, err := scoring.LoadOrTrain(s.cfg.ModelPath, s.cfg.TrainingDataPath)
		if err != nil {
			return fmt.Errorf("prepare predictor: %w", err)
		}
		s.scorer = scorer
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s, s.store)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "formation service started",
		logger.String("store", s.storeKind),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queue.Cap()),
		logger.Int("model_features", len(s.scorer.Features())),
	)
	return nil
}

// openStore builds the configured run store. When Redis or Postgres cannot
// be reached the service keeps running on the in-memory store.
func (s *Service) openStore(ctx context.Context) (repository.Store, string) {
	ttl := time.Duration(s.cfg.RunTTLSeconds) * time.Second

	switch s.cfg.Store {
	case config.StoreRedis:
		store, err := repository.NewRedisStore(ctx, repository.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		}, repository.WithTTL(ttl))
		if err == nil {
			return store, config.StoreRedis
		}
		metrics.RecordStoreError("connect")
		s.logger.Warn(ctx, "redis unavailable, using memory store",
			logger.String("addr", s.cfg.RedisAddr), logger.Error(err))
	case config.StorePostgres:
		store, err := repository.NewPostgresStore(ctx, s.cfg.PostgresDSN)
		if err == nil {
			return store, config.StorePostgres
		}
		metrics.RecordStoreError("connect")
		s.logger.Warn(ctx, "postgres unavailable, using memory store", logger.Error(err))
	}
	return repository.NewMemoryStore(repository.WithTTL(ttl)), config.StoreMemory
}

// Stop drains the workers and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping formation service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "formation service stopped")
	return errors.Join(errs...)
}

// running returns an error unless the service has been started.
func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return fmt.Errorf("%w: %w", types.ErrUnavailable, ErrNotStarted)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{Store: s.storeKind, StartedAt: s.startedAt}
	if !s.started {
		return st
	}

	st.QueueLength = s.queue.Len(ctx)
	st.QueueCapacity = s.queue.Cap()
	st.Workers = s.pool.Size()
	st.PendingKeys = s.deduper.Size()
	st.ModelFeatures = len(s.scorer.Features())

	n, err := s.store.Count(ctx)
	if err != nil {
		metrics.RecordStoreError("count")
		s.logger.Warn(ctx, "counting runs failed", logger.Error(err))
	} else {
		st.RunsStored = n
		metrics.UpdateRunsStored(n)
	}
	return st
}
