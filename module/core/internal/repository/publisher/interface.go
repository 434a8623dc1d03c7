package publisher

import (
	"context"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
)

// EventPublisher bridges alert events to an external broker for consumers
// outside this process.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}
