package domain

import "time"

type EntityKind string

const (
	KindVehicle EntityKind = "vehicle"
	KindUser    EntityKind = "user"
)

// PositionSample is one normalized position report. Samples are immutable
// once created; the position table is append-only keyed by (entity, captured_at).
type PositionSample struct {
	EntityID   string     `json:"entity_id"`
	Kind       EntityKind `json:"kind"`
	Latitude   float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Altitude   *float64   `json:"altitude,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	CapturedAt time.Time  `json:"captured_at"`
}

type HistoryQuery struct {
	EntityID string
	Start    time.Time
	End      time.Time
}

type Vehicle struct {
	VehicleID string `json:"vehicle_id"`
}
