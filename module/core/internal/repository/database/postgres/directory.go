package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

var _ database.DeviceDirectory = (*DirectoryRepo)(nil)

// DirectoryRepo answers ownership and registration questions. The device to
// vehicle to driver chain lives in one join here so the rest of the core
// never sees it.
type DirectoryRepo struct {
	db *sql.DB
}

func NewDirectoryRepo(db *sql.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) ResolveOwner(ctx context.Context, deviceID string) (string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT v.driver_id FROM devices d JOIN vehicles v ON v.device_id = d.id WHERE d.id = $1 AND v.driver_id IS NOT NULL`,
		deviceID,
	)

	var ownerID string
	if err := row.Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return ownerID, nil
}

func (r *DirectoryRepo) PushToken(ctx context.Context, userID string) (string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(push_token, '') FROM users WHERE id = $1`,
		userID,
	)

	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	if token == "" {
		return "", domain.ErrNotFound
	}
	return token, nil
}

func (r *DirectoryRepo) EntityExists(ctx context.Context, id string, kind domain.EntityKind) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM devices WHERE id = $1)`
	if kind == domain.KindUser {
		query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
