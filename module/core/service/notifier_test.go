package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
)

type mockNotificationRepo struct {
	insertFn     func(ctx context.Context, n *domain.Notification) error
	listByUserFn func(ctx context.Context, userID string) ([]domain.Notification, error)
	markReadFn   func(ctx context.Context, id string) error
}

func (m *mockNotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	return m.insertFn(ctx, n)
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return m.listByUserFn(ctx, userID)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string) error {
	return m.markReadFn(ctx, id)
}

type mockPush struct {
	deliverFn func(ctx context.Context, token, title, body string) error
}

func (m *mockPush) Deliver(ctx context.Context, token, title, body string) error {
	return m.deliverFn(ctx, token, title, body)
}

func TestNotify_PersistsStreamsAndPushes(t *testing.T) {
	var stored *domain.Notification
	repo := &mockNotificationRepo{
		insertFn: func(_ context.Context, n *domain.Notification) error {
			stored = n
			return nil
		},
	}
	dir := &mockDirectory{
		pushTokenFn: func(_ context.Context, userID string) (string, error) {
			if userID != "U1" {
				t.Fatalf("unexpected user %s", userID)
			}
			return "ExponentPushToken[abc]", nil
		},
	}
	var pushedToken string
	push := &mockPush{
		deliverFn: func(_ context.Context, token, _, _ string) error {
			pushedToken = token
			return nil
		},
	}
	stream := &capturingStream{}

	sink := NewNotificationSink(repo, dir, stream, push)
	n, err := sink.Notify(context.Background(), "U1", "Vehicle Entered Geofence", "Your vehicle DEV-1 entered Depot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n.ID == "" {
		t.Error("expected a generated id")
	}
	if n.IsRead {
		t.Error("new notification must start unread")
	}
	if stored == nil || stored.ID != n.ID {
		t.Fatal("notification not persisted")
	}

	events := stream.ofType(domain.EventNotification)
	if len(events) != 1 {
		t.Fatalf("expected 1 streamed notification, got %d", len(events))
	}
	if len(stream.topics[0]) != 1 || stream.topics[0][0] != domain.TopicUser("U1") {
		t.Errorf("expected delivery on the user topic, got %v", stream.topics[0])
	}
	if pushedToken != "ExponentPushToken[abc]" {
		t.Errorf("push not delivered, token %q", pushedToken)
	}
}

func TestNotify_InsertFailureIsFatal(t *testing.T) {
	repo := &mockNotificationRepo{
		insertFn: func(_ context.Context, _ *domain.Notification) error {
			return errors.New("db down")
		},
	}
	pushed := false
	push := &mockPush{
		deliverFn: func(_ context.Context, _, _, _ string) error {
			pushed = true
			return nil
		},
	}

	sink := NewNotificationSink(repo, &mockDirectory{}, &capturingStream{}, push)
	if _, err := sink.Notify(context.Background(), "U1", "t", "m"); err == nil {
		t.Fatal("expected error when persistence fails")
	}
	if pushed {
		t.Error("push must not run when persistence fails")
	}
}

func TestNotify_NoPushToken(t *testing.T) {
	repo := &mockNotificationRepo{
		insertFn: func(_ context.Context, _ *domain.Notification) error { return nil },
	}
	push := &mockPush{
		deliverFn: func(_ context.Context, _, _, _ string) error {
			t.Fatal("push must not run without a token")
			return nil
		},
	}

	// mockDirectory's default PushToken returns ErrNotFound
	sink := NewNotificationSink(repo, &mockDirectory{}, &capturingStream{}, push)
	if _, err := sink.Notify(context.Background(), "U1", "t", "m"); err != nil {
		t.Fatalf("missing token must not fail the alert: %v", err)
	}
}

func TestNotify_PushFailureIsSoft(t *testing.T) {
	repo := &mockNotificationRepo{
		insertFn: func(_ context.Context, _ *domain.Notification) error { return nil },
	}
	dir := &mockDirectory{
		pushTokenFn: func(_ context.Context, _ string) (string, error) { return "tok", nil },
	}
	push := &mockPush{
		deliverFn: func(_ context.Context, _, _, _ string) error {
			return errors.New("gateway 502")
		},
	}

	sink := NewNotificationSink(repo, dir, &capturingStream{}, push)
	if _, err := sink.Notify(context.Background(), "U1", "t", "m"); err != nil {
		t.Fatalf("push failure must not fail the alert: %v", err)
	}
}
