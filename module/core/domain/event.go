package domain

import "fmt"

type EventType string

const (
	EventPositionUpdated EventType = "position_updated"
	EventGeofenceEntered EventType = "geofence_entered"
	EventGeofenceExited  EventType = "geofence_exited"
	EventProximityAlert  EventType = "proximity_alert"
	EventNotification    EventType = "notification"
)

// Event is the wire form pushed to live subscribers: a type tag plus a
// payload matching one of the variants below.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// IsAlert reports whether the event should also reach the notification log.
func (e Event) IsAlert() bool {
	switch e.Type {
	case EventGeofenceEntered, EventGeofenceExited, EventProximityAlert:
		return true
	}
	return false
}

type GeofenceCrossing struct {
	DeviceID     string  `json:"device_id"`
	GeofenceID   string  `json:"geofence_id"`
	GeofenceName string  `json:"geofence_name"`
	OwnerID      string  `json:"owner_id,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Timestamp    int64   `json:"timestamp"`
}

type ProximityAlert struct {
	SubjectID      string     `json:"subject_id"`
	SubjectKind    EntityKind `json:"subject_kind"`
	NearEntityID   string     `json:"near_entity_id"`
	NearEntityKind EntityKind `json:"near_entity_kind"`
	DistanceMeters float64    `json:"distance_meters"`
	Timestamp      int64      `json:"timestamp"`
}

const TopicGlobal = "global"

func TopicVehicle(id string) string { return fmt.Sprintf("vehicle:%s", id) }
func TopicUser(id string) string    { return fmt.Sprintf("user:%s", id) }

// TopicEntity maps an entity to its per-entity topic.
func TopicEntity(kind EntityKind, id string) string {
	if kind == KindUser {
		return TopicUser(id)
	}
	return TopicVehicle(id)
}
