package domain

import "time"

type TriggerMask string

const (
	TriggerEntry TriggerMask = "entry"
	TriggerExit  TriggerMask = "exit"
	TriggerBoth  TriggerMask = "both"
)

// Geofence is a circular boundary owned by configuration management.
// The core only reads it.
type Geofence struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	CenterLat    float64     `json:"center_lat"`
	CenterLng    float64     `json:"center_lng"`
	RadiusMeters float64     `json:"radius"`
	Trigger      TriggerMask `json:"trigger"`
	Active       bool        `json:"active"`
}

// FiresOn reports whether the fence's trigger mask allows an event for the
// given crossing direction.
func (g Geofence) FiresOn(entered bool) bool {
	switch g.Trigger {
	case TriggerEntry:
		return entered
	case TriggerExit:
		return !entered
	default:
		return true
	}
}

// MembershipState records which side of a fence boundary a device was on at
// its last evaluation. It is the only source of truth for whether a
// transition event may fire: consecutive samples on the same side never
// re-trigger.
type MembershipState struct {
	DeviceID        string
	GeofenceID      string
	Inside          bool
	LastEvaluatedAt time.Time
}
