package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/okian/squadron/internal/domain/rooms"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/types"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// Prediction modes recorded in metrics.
const (
	modeSingle = "single"
	modeBatch  = "batch"
)

// AssignRooms places the roster into rooms in order.
func (s *Service) AssignRooms(ctx context.Context, teams []string, roomCount, capacity int) (*rooms.Allocation, error) {
	alloc, err := s.assigner.Assign(teams, roomCount, capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
	}

	metrics.RecordRoomAssignment(len(alloc.Assignments), len(alloc.Dropped))
	if len(alloc.Dropped) > 0 {
		s.logger.Warn(ctx, "rooms full, teams dropped",
			logger.Int("teams_dropped", len(alloc.Dropped)),
			logger.Int("rooms", roomCount),
			logger.Int("capacity", capacity),
		)
	}
	return alloc, nil
}

// PredictScore predicts one team's score from its technology list.
func (s *Service) PredictScore(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error) {
	if err := s.running(); err != nil {
		return types.PredictResponse{}, err
	}
	if strings.TrimSpace(req.TechStackUsed) == "" {
		return types.PredictResponse{}, fmt.Errorf("%w: tech_stack_used is required", types.ErrInvalidInput)
	}

	res, err := s.scorer.Score(ctx, scoring.Input{Name: req.Name, Stack: req.TechStackUsed})
	if err != nil {
		metrics.RecordPredictionError()
		return types.PredictResponse{}, err
	}
	metrics.RecordPrediction(modeSingle, 1)
	return types.PredictResponse{Name: res.Name, Score: res.Score}, nil
}

// PredictTable predicts every row of a feature table.
func (s *Service) PredictTable(ctx context.Context, r io.Reader) ([]scoring.Result, error) {
	if err := s.running(); err != nil {
		return nil, err
	}

	results, err := s.scorer.ScoreTable(ctx, r)
	if err != nil {
		metrics.RecordPredictionError()
		if scoring.IsInputError(err) {
			return nil, fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("predict table: %w", err)
	}
	metrics.RecordPrediction(modeBatch, len(results))
	return results, nil
}
