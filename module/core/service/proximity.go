package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
)

// LatestPositionView exposes the latest known position per entity of a kind.
type LatestPositionView interface {
	Latest(ctx context.Context, kind domain.EntityKind) ([]domain.PositionSample, error)
}

// Match is one entity found within the search radius.
type Match struct {
	Sample         domain.PositionSample
	DistanceMeters float64
}

// ProximityMatcher finds entities of the complementary kind within a radius
// of a subject. A degree bounding box discards far candidates before the
// exact distance is computed. No hysteresis here: every qualifying call may
// re-alert, and throttling per pair is the caller's concern.
type ProximityMatcher struct {
	view LatestPositionView
}

func NewProximityMatcher(view LatestPositionView) *ProximityMatcher {
	return &ProximityMatcher{view: view}
}

// Nearby returns entities of the complementary kind strictly closer than
// radiusMeters to the subject, sorted nearest first. The subject itself is
// never part of the result.
func (m *ProximityMatcher) Nearby(ctx context.Context, subject *domain.PositionSample, radiusMeters float64) ([]Match, error) {
	candidates, err := m.view.Latest(ctx, complement(subject.Kind))
	if err != nil {
		return nil, fmt.Errorf("latest positions: %w", err)
	}

	minLat, maxLat, minLng, maxLng := boundingBox(subject.Latitude, subject.Longitude, radiusMeters)

	var matches []Match
	for _, c := range candidates {
		if c.EntityID == subject.EntityID {
			continue
		}
		if c.Latitude < minLat || c.Latitude > maxLat || c.Longitude < minLng || c.Longitude > maxLng {
			continue
		}
		distance := planarDistanceMeters(subject.Latitude, subject.Longitude, c.Latitude, c.Longitude)
		if distance < radiusMeters {
			matches = append(matches, Match{Sample: c, DistanceMeters: distance})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DistanceMeters < matches[j].DistanceMeters
	})
	return matches, nil
}

func complement(kind domain.EntityKind) domain.EntityKind {
	if kind == domain.KindVehicle {
		return domain.KindUser
	}
	return domain.KindVehicle
}
