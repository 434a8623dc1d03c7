package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

var _ database.MembershipRepository = (*MembershipRepo)(nil)

type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (r *MembershipRepo) Get(ctx context.Context, deviceID, geofenceID string) (*domain.MembershipState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT device_id, geofence_id, inside, last_evaluated_at FROM geofence_memberships WHERE device_id = $1 AND geofence_id = $2`,
		deviceID, geofenceID,
	)

	var st domain.MembershipState
	if err := row.Scan(&st.DeviceID, &st.GeofenceID, &st.Inside, &st.LastEvaluatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *MembershipRepo) Create(ctx context.Context, state *domain.MembershipState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofence_memberships (device_id, geofence_id, inside, last_evaluated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (device_id, geofence_id) DO NOTHING`,
		state.DeviceID, state.GeofenceID, state.Inside, state.LastEvaluatedAt,
	)
	return err
}

// TransitionInside flips the stored side only when the row still records the
// expected previous side. It reports whether the update applied; a false
// return means another writer recorded the crossing first.
func (r *MembershipRepo) TransitionInside(ctx context.Context, deviceID, geofenceID string, from, to bool, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE geofence_memberships SET inside = $1, last_evaluated_at = $2 WHERE device_id = $3 AND geofence_id = $4 AND inside = $5`,
		to, at, deviceID, geofenceID, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
