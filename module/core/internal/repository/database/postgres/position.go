package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

var _ database.PositionRepository = (*PositionRepo)(nil)

type PositionRepo struct {
	db *sql.DB
}

func NewPositionRepo(db *sql.DB) *PositionRepo {
	return &PositionRepo{db: db}
}

func (r *PositionRepo) Insert(ctx context.Context, s *domain.PositionSample) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO positions (entity_id, kind, latitude, longitude, altitude, speed, captured_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.EntityID, string(s.Kind), s.Latitude, s.Longitude, s.Altitude, s.Speed, s.CapturedAt,
	)
	return err
}

func (r *PositionRepo) GetLatest(ctx context.Context, entityID string) (*domain.PositionSample, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT entity_id, kind, latitude, longitude, altitude, speed, captured_at FROM positions WHERE entity_id = $1 ORDER BY captured_at DESC LIMIT 1`,
		entityID,
	)

	var s domain.PositionSample
	var kind string
	if err := row.Scan(&s.EntityID, &kind, &s.Latitude, &s.Longitude, &s.Altitude, &s.Speed, &s.CapturedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	s.Kind = domain.EntityKind(kind)
	return &s, nil
}

func (r *PositionRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.PositionSample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entity_id, kind, latitude, longitude, altitude, speed, captured_at FROM positions WHERE entity_id = $1 AND captured_at >= $2 AND captured_at <= $3 ORDER BY captured_at ASC`,
		query.EntityID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.PositionSample
	for rows.Next() {
		var s domain.PositionSample
		var kind string
		if err := rows.Scan(&s.EntityID, &kind, &s.Latitude, &s.Longitude, &s.Altitude, &s.Speed, &s.CapturedAt); err != nil {
			return nil, err
		}
		s.Kind = domain.EntityKind(kind)
		results = append(results, s)
	}
	return results, rows.Err()
}

func (r *PositionRepo) GetAllVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT entity_id FROM positions WHERE kind = 'vehicle' ORDER BY entity_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.VehicleID); err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}
