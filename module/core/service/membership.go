package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

// MembershipTracker turns raw distance checks into edge-triggered crossing
// events. State per (device, geofence) lives in the membership repository;
// an event fires only when the stored side of the boundary changes, so
// consecutive samples inside (or outside) a fence stay silent.
type MembershipTracker struct {
	repo      database.MembershipRepository
	directory database.DeviceDirectory

	locks sync.Map // "device|fence" -> *sync.Mutex
	now   func() time.Time
}

func NewMembershipTracker(repo database.MembershipRepository, directory database.DeviceDirectory) *MembershipTracker {
	return &MembershipTracker{
		repo:      repo,
		directory: directory,
		now:       time.Now,
	}
}

// Evaluate checks the sample against every fence and returns the crossing
// events it produced. State is updated even when the fence's trigger mask or
// a failed owner lookup suppresses the event, so later samples still
// deduplicate correctly.
func (t *MembershipTracker) Evaluate(ctx context.Context, sample *domain.PositionSample, fences []domain.Geofence) ([]domain.Event, error) {
	var events []domain.Event

	for _, fence := range fences {
		event, err := t.evaluateOne(ctx, sample, fence)
		if err != nil {
			return events, fmt.Errorf("fence %s: %w", fence.ID, err)
		}
		if event != nil {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (t *MembershipTracker) evaluateOne(ctx context.Context, sample *domain.PositionSample, fence domain.Geofence) (*domain.Event, error) {
	mu := t.keyLock(sample.EntityID, fence.ID)
	mu.Lock()
	defer mu.Unlock()

	distance := planarDistanceMeters(sample.Latitude, sample.Longitude, fence.CenterLat, fence.CenterLng)
	nowInside := distance <= fence.RadiusMeters

	state, err := t.repo.Get(ctx, sample.EntityID, fence.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// First evaluation: unknown is treated as outside, so a first
		// sample inside the fence counts as a crossing.
		if err := t.repo.Create(ctx, &domain.MembershipState{
			DeviceID:        sample.EntityID,
			GeofenceID:      fence.ID,
			Inside:          nowInside,
			LastEvaluatedAt: t.now(),
		}); err != nil {
			return nil, err
		}
		if !nowInside {
			return nil, nil
		}
		return t.crossingEvent(ctx, sample, fence, true), nil
	}
	if err != nil {
		return nil, err
	}

	if nowInside == state.Inside {
		return nil, nil
	}

	applied, err := t.repo.TransitionInside(ctx, sample.EntityID, fence.ID, state.Inside, nowInside, t.now())
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another writer recorded this crossing first.
		return nil, nil
	}

	return t.crossingEvent(ctx, sample, fence, nowInside), nil
}

func (t *MembershipTracker) crossingEvent(ctx context.Context, sample *domain.PositionSample, fence domain.Geofence, entered bool) *domain.Event {
	if !fence.FiresOn(entered) {
		return nil
	}

	ownerID, err := t.directory.ResolveOwner(ctx, sample.EntityID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Printf("membership: resolve owner for %s: %v", sample.EntityID, err)
		}
		ownerID = ""
	}

	eventType := domain.EventGeofenceEntered
	if !entered {
		eventType = domain.EventGeofenceExited
	}

	return &domain.Event{
		Type: eventType,
		Payload: domain.GeofenceCrossing{
			DeviceID:     sample.EntityID,
			GeofenceID:   fence.ID,
			GeofenceName: fence.Name,
			OwnerID:      ownerID,
			Latitude:     sample.Latitude,
			Longitude:    sample.Longitude,
			Timestamp:    sample.CapturedAt.Unix(),
		},
	}
}

func (t *MembershipTracker) keyLock(deviceID, geofenceID string) *sync.Mutex {
	key := deviceID + "|" + geofenceID
	if mu, ok := t.locks.Load(key); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := t.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
