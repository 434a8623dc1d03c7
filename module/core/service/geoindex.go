package service

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

// GeofenceIndex keeps the active fence set in memory so the hot path never
// reads the store. Refreshes build a new slice and swap a pointer; readers
// holding an old snapshot keep iterating it safely.
type GeofenceIndex struct {
	repo     database.GeofenceRepository
	interval time.Duration

	snapshot atomic.Pointer[[]domain.Geofence]
	kick     chan struct{}
}

func NewGeofenceIndex(repo database.GeofenceRepository, interval time.Duration) *GeofenceIndex {
	if interval <= 0 {
		interval = time.Minute
	}
	idx := &GeofenceIndex{
		repo:     repo,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
	empty := []domain.Geofence{}
	idx.snapshot.Store(&empty)
	return idx
}

// Active returns the current snapshot. The returned slice must not be
// mutated.
func (idx *GeofenceIndex) Active() []domain.Geofence {
	return *idx.snapshot.Load()
}

// Refresh reloads the fence set immediately.
func (idx *GeofenceIndex) Refresh(ctx context.Context) error {
	fences, err := idx.repo.LoadActive(ctx)
	if err != nil {
		return err
	}
	idx.snapshot.Store(&fences)
	return nil
}

// Invalidate requests an out-of-band refresh from the Run loop. Multiple
// pending signals coalesce into one reload.
func (idx *GeofenceIndex) Invalidate() {
	select {
	case idx.kick <- struct{}{}:
	default:
	}
}

// Run refreshes on the configured interval and on Invalidate signals until
// the context ends. A failed reload keeps the previous snapshot.
func (idx *GeofenceIndex) Run(ctx context.Context) {
	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-idx.kick:
		case <-ctx.Done():
			return
		}
		if err := idx.Refresh(ctx); err != nil {
			log.Printf("geofence index refresh: %v", err)
		}
	}
}
