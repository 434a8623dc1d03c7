package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/internal/metrics"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/publisher"
)

// EventStream receives events for live subscribers.
type EventStream interface {
	Publish(event domain.Event, topics ...string)
}

// Notifier persists and pushes a user-facing alert.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string) (*domain.Notification, error)
}

// LatestUpdater maintains the latest-position view the proximity matcher
// reads.
type LatestUpdater interface {
	Update(ctx context.Context, sample *domain.PositionSample) error
}

type PipelineConfig struct {
	Workers               int
	QueueSize             int
	ItemTimeout           time.Duration
	RetryBackoff          time.Duration
	ProximityRadiusMeters float64
}

func (c *PipelineConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = 5 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.ProximityRadiusMeters <= 0 {
		c.ProximityRadiusMeters = 200
	}
}

// ItemResult is the per-element outcome of a batch ingest.
type ItemResult struct {
	Status   string `json:"status"`
	EntityID string `json:"entity_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type job struct {
	raw  map[string]any
	done chan error
}

// Pipeline runs every sample through normalize, persist, geofence and
// proximity evaluation, and event fan-out. Samples are partitioned by
// entity id onto serial workers: the same entity is always processed in
// submission order, different entities fully in parallel.
type Pipeline struct {
	normalizer *Normalizer
	positions  database.PositionRepository
	latest     LatestUpdater
	index      *GeofenceIndex
	tracker    *MembershipTracker
	matcher    *ProximityMatcher
	stream     EventStream
	bridge     publisher.EventPublisher
	notifier   Notifier
	cfg        PipelineConfig

	queues  []chan job
	wg      sync.WaitGroup
	baseCtx context.Context
}

func NewPipeline(
	normalizer *Normalizer,
	positions database.PositionRepository,
	latest LatestUpdater,
	index *GeofenceIndex,
	tracker *MembershipTracker,
	matcher *ProximityMatcher,
	stream EventStream,
	bridge publisher.EventPublisher,
	notifier Notifier,
	cfg PipelineConfig,
) *Pipeline {
	cfg.applyDefaults()

	p := &Pipeline{
		normalizer: normalizer,
		positions:  positions,
		latest:     latest,
		index:      index,
		tracker:    tracker,
		matcher:    matcher,
		stream:     stream,
		bridge:     bridge,
		notifier:   notifier,
		cfg:        cfg,
	}
	p.queues = make([]chan job, cfg.Workers)
	for i := range p.queues {
		p.queues[i] = make(chan job, cfg.QueueSize)
	}
	return p
}

// Start launches the partition workers. Stop drains them.
func (p *Pipeline) Start(ctx context.Context) {
	p.baseCtx = ctx
	for i := range p.queues {
		p.wg.Add(1)
		go p.worker(p.queues[i])
	}
}

func (p *Pipeline) Stop() {
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
}

// Submit enqueues one raw report for asynchronous processing (wire-feed
// path). Errors surface through logs and counters only.
func (p *Pipeline) Submit(raw map[string]any) {
	metrics.SamplesReceived.Add(1)
	p.queue(raw) <- job{raw: raw}
}

// ProcessBatch runs every element through its partition and reports
// per-item outcomes in input order. One bad element never aborts the rest.
func (p *Pipeline) ProcessBatch(ctx context.Context, items []map[string]any) []ItemResult {
	dones := make([]chan error, len(items))
	for i, raw := range items {
		metrics.SamplesReceived.Add(1)
		done := make(chan error, 1)
		dones[i] = done
		p.queue(raw) <- job{raw: raw, done: done}
	}

	results := make([]ItemResult, len(items))
	for i, done := range dones {
		res := ItemResult{Status: "created", EntityID: rawEntityKey(items[i])}
		select {
		case err := <-done:
			if err != nil {
				res.Status = "failed"
				res.Error = err.Error()
			}
		case <-ctx.Done():
			res.Status = "failed"
			res.Error = ctx.Err().Error()
		}
		results[i] = res
	}
	return results
}

func (p *Pipeline) queue(raw map[string]any) chan job {
	h := fnv.New32a()
	h.Write([]byte(rawEntityKey(raw)))
	return p.queues[int(h.Sum32())%len(p.queues)]
}

// rawEntityKey peeks at the identity field before normalization so routing
// can happen without touching the store.
func rawEntityKey(raw map[string]any) string {
	if id := asString(raw["deviceId"]); id != "" {
		return id
	}
	return asString(raw["userId"])
}

func (p *Pipeline) worker(queue <-chan job) {
	defer p.wg.Done()

	for j := range queue {
		ctx, cancel := context.WithTimeout(p.baseCtx, p.cfg.ItemTimeout)
		err := p.process(ctx, j.raw)
		cancel()

		if err != nil {
			if domain.IsValidation(err) || errors.Is(err, domain.ErrUnknownEntity) {
				metrics.SamplesInvalid.Add(1)
			} else {
				metrics.SamplesFailed.Add(1)
			}
			if j.done == nil {
				log.Printf("pipeline: sample dropped: %v", err)
			}
		}
		if j.done != nil {
			j.done <- err
		}
	}
}

func (p *Pipeline) process(ctx context.Context, raw map[string]any) error {
	sample, err := p.normalizer.Normalize(ctx, raw)
	if err != nil {
		return err
	}

	if err := p.persist(ctx, sample); err != nil {
		return fmt.Errorf("persist position: %w", err)
	}

	if err := p.latest.Update(ctx, sample); err != nil {
		// The view is a cache over the persisted history; a miss only
		// degrades proximity matching for this tick.
		log.Printf("pipeline: latest view update for %s: %v", sample.EntityID, err)
	}

	var (
		crossings     []domain.Event
		matches       []Match
		membershipErr error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		crossings, membershipErr = p.tracker.Evaluate(ctx, sample, p.index.Active())
	}()
	go func() {
		defer wg.Done()
		var matchErr error
		matches, matchErr = p.matcher.Nearby(ctx, sample, p.cfg.ProximityRadiusMeters)
		if matchErr != nil {
			log.Printf("pipeline: proximity match for %s: %v", sample.EntityID, matchErr)
		}
	}()
	wg.Wait()

	p.emitPositionUpdated(sample)
	p.emitCrossings(ctx, crossings)
	p.emitProximity(ctx, sample, matches)

	if membershipErr != nil {
		return fmt.Errorf("membership evaluation: %w", membershipErr)
	}
	return nil
}

func (p *Pipeline) persist(ctx context.Context, sample *domain.PositionSample) error {
	err := p.positions.Insert(ctx, sample)
	if err == nil {
		return nil
	}
	log.Printf("pipeline: position insert for %s failed, retrying: %v", sample.EntityID, err)

	select {
	case <-time.After(p.cfg.RetryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.positions.Insert(ctx, sample)
}

func (p *Pipeline) emitPositionUpdated(sample *domain.PositionSample) {
	event := domain.Event{Type: domain.EventPositionUpdated, Payload: sample}
	p.publish(event, domain.TopicGlobal, domain.TopicEntity(sample.Kind, sample.EntityID))
}

func (p *Pipeline) emitCrossings(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		crossing, ok := event.Payload.(domain.GeofenceCrossing)
		if !ok {
			continue
		}

		topics := []string{domain.TopicGlobal, domain.TopicVehicle(crossing.DeviceID)}
		if crossing.OwnerID != "" {
			topics = append(topics, domain.TopicUser(crossing.OwnerID))
		}
		p.publish(event, topics...)
		p.forward(ctx, event)

		if crossing.OwnerID == "" {
			// Transition recorded, nothing to notify.
			continue
		}
		verb := "entered"
		title := "Vehicle Entered Geofence"
		if event.Type == domain.EventGeofenceExited {
			verb = "exited"
			title = "Vehicle Exited Geofence"
		}
		message := fmt.Sprintf("Your vehicle %s %s %s", crossing.DeviceID, verb, crossing.GeofenceName)
		p.notify(ctx, crossing.OwnerID, title, message)
	}
}

func (p *Pipeline) emitProximity(ctx context.Context, sample *domain.PositionSample, matches []Match) {
	for _, match := range matches {
		alert := domain.ProximityAlert{
			SubjectID:      sample.EntityID,
			SubjectKind:    sample.Kind,
			NearEntityID:   match.Sample.EntityID,
			NearEntityKind: match.Sample.Kind,
			DistanceMeters: match.DistanceMeters,
			Timestamp:      sample.CapturedAt.Unix(),
		}
		event := domain.Event{Type: domain.EventProximityAlert, Payload: alert}

		p.publish(event,
			domain.TopicGlobal,
			domain.TopicEntity(sample.Kind, sample.EntityID),
			domain.TopicEntity(match.Sample.Kind, match.Sample.EntityID),
		)
		p.forward(ctx, event)

		// The user side of the pair gets the notification.
		userID := sample.EntityID
		other := match.Sample.EntityID
		if sample.Kind != domain.KindUser {
			if match.Sample.Kind != domain.KindUser {
				continue
			}
			userID = match.Sample.EntityID
			other = sample.EntityID
		}
		message := fmt.Sprintf("Vehicle %s is within %.0f m of you", other, match.DistanceMeters)
		p.notify(ctx, userID, "Vehicle Nearby", message)
	}
}

func (p *Pipeline) publish(event domain.Event, topics ...string) {
	metrics.EventsPublished.Add(1)
	p.stream.Publish(event, topics...)
}

func (p *Pipeline) forward(ctx context.Context, event domain.Event) {
	if p.bridge == nil {
		return
	}
	if err := p.bridge.PublishEvent(ctx, event); err != nil {
		log.Printf("pipeline: event bridge: %v", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, userID, title, message string) {
	if p.notifier == nil {
		return
	}
	if _, err := p.notifier.Notify(ctx, userID, title, message); err != nil {
		log.Printf("pipeline: notify %s: %v", userID, err)
	} else {
		metrics.NotificationsSent.Add(1)
	}
}
