package postgres

import (
	"context"
	"database/sql"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

var _ database.GeofenceRepository = (*GeofenceRepo)(nil)

type GeofenceRepo struct {
	db *sql.DB
}

func NewGeofenceRepo(db *sql.DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

func (r *GeofenceRepo) LoadActive(ctx context.Context) ([]domain.Geofence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, center_lat, center_lng, radius, trigger_mask FROM geofences WHERE active = TRUE ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Geofence
	for rows.Next() {
		var g domain.Geofence
		var trigger string
		if err := rows.Scan(&g.ID, &g.Name, &g.CenterLat, &g.CenterLng, &g.RadiusMeters, &trigger); err != nil {
			return nil, err
		}
		g.Trigger = domain.TriggerMask(trigger)
		g.Active = true
		results = append(results, g)
	}
	return results, rows.Err()
}
