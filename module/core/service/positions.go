package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

// PositionService is the read side of the position store.
type PositionService struct {
	repo database.PositionRepository
}

func NewPositionService(repo database.PositionRepository) *PositionService {
	return &PositionService{repo: repo}
}

func (s *PositionService) GetAllVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return s.repo.GetAllVehicles(ctx)
}

func (s *PositionService) GetLatest(ctx context.Context, entityID string) (*domain.PositionSample, error) {
	if entityID == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "required"}
	}
	return s.repo.GetLatest(ctx, entityID)
}

// GetHistory returns samples for one entity in [start, end], oldest first.
// An empty end defaults to now, an empty start to 24h before the end.
func (s *PositionService) GetHistory(ctx context.Context, entityID string, start, end time.Time) ([]domain.PositionSample, error) {
	if entityID == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "required"}
	}
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.Add(-24 * time.Hour)
	}
	if start.After(end) {
		return nil, &domain.ValidationError{Field: "start", Reason: "must not be after end"}
	}

	samples, err := s.repo.GetHistory(ctx, &domain.HistoryQuery{EntityID: entityID, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("load history for %q: %w", entityID, err)
	}
	return samples, nil
}
