package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database"
)

// PushSender delivers a push message to one registered device token.
type PushSender interface {
	Deliver(ctx context.Context, token, title, body string) error
}

// NotificationSink persists alerts, streams them to the user's live topic
// and attempts push delivery. Persistence is the only hard dependency:
// stream and push failures degrade, never fail the alert.
type NotificationSink struct {
	repo      database.NotificationRepository
	directory database.DeviceDirectory
	stream    EventStream
	push      PushSender
	now       func() time.Time
}

var _ Notifier = (*NotificationSink)(nil)

func NewNotificationSink(repo database.NotificationRepository, directory database.DeviceDirectory, stream EventStream, push PushSender) *NotificationSink {
	return &NotificationSink{
		repo:      repo,
		directory: directory,
		stream:    stream,
		push:      push,
		now:       time.Now,
	}
}

func (s *NotificationSink) Notify(ctx context.Context, userID, title, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	if s.stream != nil {
		s.stream.Publish(domain.Event{Type: domain.EventNotification, Payload: n}, domain.TopicUser(userID))
	}
	s.deliverPush(ctx, n)

	return n, nil
}

func (s *NotificationSink) deliverPush(ctx context.Context, n *domain.Notification) {
	if s.push == nil {
		return
	}
	token, err := s.directory.PushToken(ctx, n.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		// No registered device, the durable record is enough.
		return
	}
	if err != nil {
		log.Printf("notifier: push token lookup for %s: %v", n.UserID, err)
		return
	}
	if err := s.push.Deliver(ctx, token, n.Title, n.Message); err != nil {
		log.Printf("notifier: push delivery to %s: %v", n.UserID, err)
	}
}

// ListByUser returns the stored notifications for a user, newest first.
func (s *NotificationSink) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// MarkRead flips one notification to read.
func (s *NotificationSink) MarkRead(ctx context.Context, id string) error {
	return s.repo.MarkRead(ctx, id)
}
