package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
)

const entryTTL = 10 * time.Minute

// LatestStore materializes the latest known position per entity in Redis.
// Proximity matching reads this view instead of scanning position history.
type LatestStore struct {
	client *redis.Client
}

func NewLatestStore(client *redis.Client) *LatestStore {
	return &LatestStore{client: client}
}

func hashKey(kind domain.EntityKind) string {
	return fmt.Sprintf("latest:%s", kind)
}

func geoKey(kind domain.EntityKind) string {
	return fmt.Sprintf("geo:%s", kind)
}

func (s *LatestStore) Update(ctx context.Context, sample *domain.PositionSample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, hashKey(sample.Kind), sample.EntityID, payload)
	pipe.Expire(ctx, hashKey(sample.Kind), entryTTL)
	pipe.GeoAdd(ctx, geoKey(sample.Kind), &redis.GeoLocation{
		Name:      sample.EntityID,
		Longitude: sample.Longitude,
		Latitude:  sample.Latitude,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis latest update: %w", err)
	}
	return nil
}

// Latest returns the most recent sample for every entity of the given kind.
func (s *LatestStore) Latest(ctx context.Context, kind domain.EntityKind) ([]domain.PositionSample, error) {
	fields, err := s.client.HGetAll(ctx, hashKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis latest read: %w", err)
	}

	samples := make([]domain.PositionSample, 0, len(fields))
	for id, raw := range fields {
		var sample domain.PositionSample
		if err := json.Unmarshal([]byte(raw), &sample); err != nil {
			// skip corrupt entries
			continue
		}
		sample.EntityID = id
		samples = append(samples, sample)
	}
	return samples, nil
}
