package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

// Normalizer turns a raw report from either ingest source into a canonical
// PositionSample. Both sources are untrusted: field names vary
// (deviceId/userId, lat/latitude, lng/longitude) and numbers may arrive as
// strings.
type Normalizer struct {
	directory database.DeviceDirectory
	validate  *validator.Validate
	now       func() time.Time
}

func NewNormalizer(directory database.DeviceDirectory) *Normalizer {
	return &Normalizer{
		directory: directory,
		validate:  validator.New(),
		now:       time.Now,
	}
}

func (n *Normalizer) Normalize(ctx context.Context, raw map[string]any) (*domain.PositionSample, error) {
	id, kind, err := identity(raw)
	if err != nil {
		return nil, err
	}

	lat, ok, err := numField(raw, "latitude", "lat")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.ValidationError{Field: "latitude", Reason: "required"}
	}

	lng, ok, err := numField(raw, "longitude", "lng")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.ValidationError{Field: "longitude", Reason: "required"}
	}

	sample := &domain.PositionSample{
		EntityID:   id,
		Kind:       kind,
		Latitude:   lat,
		Longitude:  lng,
		CapturedAt: n.capturedAt(raw),
	}

	if alt, ok, err := numField(raw, "altitude"); err != nil {
		return nil, err
	} else if ok {
		sample.Altitude = &alt
	}
	if speed, ok, err := numField(raw, "speed"); err != nil {
		return nil, err
	} else if ok {
		sample.Speed = &speed
	}

	if err := n.validate.Struct(sample); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return nil, &domain.ValidationError{
				Field:  errs[0].Field(),
				Reason: "out of range",
			}
		}
		return nil, err
	}

	exists, err := n.directory.EntityExists(ctx, id, kind)
	if err != nil {
		return nil, fmt.Errorf("resolve entity %q: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("entity %q: %w", id, domain.ErrUnknownEntity)
	}

	return sample, nil
}

func (n *Normalizer) capturedAt(raw map[string]any) time.Time {
	if ts, ok, err := numField(raw, "timestamp"); err == nil && ok && ts > 0 {
		return time.Unix(int64(ts), 0)
	}
	return n.now()
}

func identity(raw map[string]any) (string, domain.EntityKind, error) {
	if v, ok := raw["deviceId"]; ok {
		id := asString(v)
		if id == "" {
			return "", "", &domain.ValidationError{Field: "deviceId", Reason: "must be a non-empty string"}
		}
		return id, domain.KindVehicle, nil
	}
	if v, ok := raw["userId"]; ok {
		id := asString(v)
		if id == "" {
			return "", "", &domain.ValidationError{Field: "userId", Reason: "must be a non-empty string"}
		}
		return id, domain.KindUser, nil
	}
	return "", "", &domain.ValidationError{Field: "deviceId", Reason: "required"}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

// numField reads the first present alias as a float64, accepting JSON
// numbers and numeric strings. The second return reports presence.
func numField(raw map[string]any, aliases ...string) (float64, bool, error) {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true, nil
		case int:
			return float64(t), true, nil
		case int64:
			return float64(t), true, nil
		case string:
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return 0, false, &domain.ValidationError{Field: key, Reason: "not numeric"}
			}
			return f, true, nil
		default:
			return 0, false, &domain.ValidationError{Field: key, Reason: "not numeric"}
		}
	}
	return 0, false, nil
}
