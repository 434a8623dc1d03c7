package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
)

type mockPositionRepo struct {
	insertFn         func(ctx context.Context, s *domain.PositionSample) error
	getLatestFn      func(ctx context.Context, entityID string) (*domain.PositionSample, error)
	getHistoryFn     func(ctx context.Context, q *domain.HistoryQuery) ([]domain.PositionSample, error)
	getAllVehiclesFn func(ctx context.Context) ([]domain.Vehicle, error)
}

func (m *mockPositionRepo) Insert(ctx context.Context, s *domain.PositionSample) error {
	return m.insertFn(ctx, s)
}

func (m *mockPositionRepo) GetLatest(ctx context.Context, entityID string) (*domain.PositionSample, error) {
	return m.getLatestFn(ctx, entityID)
}

func (m *mockPositionRepo) GetHistory(ctx context.Context, q *domain.HistoryQuery) ([]domain.PositionSample, error) {
	return m.getHistoryFn(ctx, q)
}

func (m *mockPositionRepo) GetAllVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return m.getAllVehiclesFn(ctx)
}

func TestGetLatest_RequiresID(t *testing.T) {
	svc := NewPositionService(&mockPositionRepo{})
	_, err := svc.GetLatest(context.Background(), "")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetLatest_PassesThrough(t *testing.T) {
	want := &domain.PositionSample{EntityID: "DEV-1", Latitude: 1, Longitude: 2}
	svc := NewPositionService(&mockPositionRepo{
		getLatestFn: func(_ context.Context, entityID string) (*domain.PositionSample, error) {
			if entityID != "DEV-1" {
				t.Fatalf("unexpected id %s", entityID)
			}
			return want, nil
		},
	})

	got, err := svc.GetLatest(context.Background(), "DEV-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatal("unexpected sample")
	}
}

func TestGetHistory_DefaultsWindow(t *testing.T) {
	var captured *domain.HistoryQuery
	svc := NewPositionService(&mockPositionRepo{
		getHistoryFn: func(_ context.Context, q *domain.HistoryQuery) ([]domain.PositionSample, error) {
			captured = q
			return nil, nil
		},
	})

	before := time.Now()
	if _, err := svc.GetHistory(context.Background(), "DEV-1", time.Time{}, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured == nil {
		t.Fatal("repository not called")
	}
	if captured.End.Before(before) {
		t.Errorf("expected end to default to now, got %v", captured.End)
	}
	if window := captured.End.Sub(captured.Start); window != 24*time.Hour {
		t.Errorf("expected a 24h default window, got %v", window)
	}
}

func TestGetHistory_RejectsInvertedRange(t *testing.T) {
	svc := NewPositionService(&mockPositionRepo{})
	start := time.Unix(1715003456, 0)
	_, err := svc.GetHistory(context.Background(), "DEV-1", start, start.Add(-time.Hour))
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetHistory_WrapsRepoError(t *testing.T) {
	svc := NewPositionService(&mockPositionRepo{
		getHistoryFn: func(_ context.Context, _ *domain.HistoryQuery) ([]domain.PositionSample, error) {
			return nil, errors.New("db down")
		},
	})

	if _, err := svc.GetHistory(context.Background(), "DEV-1", time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected error")
	}
}
