package database

import (
	"context"
	"time"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
)

type PositionRepository interface {
	Insert(ctx context.Context, s *domain.PositionSample) error
	GetLatest(ctx context.Context, entityID string) (*domain.PositionSample, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.PositionSample, error)
	GetAllVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// MembershipRepository stores the per (device, geofence) boundary state.
// TransitionInside is conditional on the previously observed side so two
// writers racing on the same key cannot both record the same crossing.
type MembershipRepository interface {
	Get(ctx context.Context, deviceID, geofenceID string) (*domain.MembershipState, error)
	Create(ctx context.Context, state *domain.MembershipState) error
	TransitionInside(ctx context.Context, deviceID, geofenceID string, from, to bool, at time.Time) (bool, error)
}

type GeofenceRepository interface {
	LoadActive(ctx context.Context) ([]domain.Geofence, error)
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// DeviceDirectory resolves ownership and push registration. It hides the
// device to vehicle to driver join from the core.
type DeviceDirectory interface {
	ResolveOwner(ctx context.Context, deviceID string) (string, error)
	PushToken(ctx context.Context, userID string) (string, error)
	EntityExists(ctx context.Context, id string, kind domain.EntityKind) (bool, error)
}
