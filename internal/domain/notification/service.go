package notification

import (
	"context"
)

// Dispatcher delivers attendance request events. Dispatch never fails the
// caller; delivery problems are logged and reported.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)

	// SSE subscription
	Subscribe(ctx context.Context, userID string) (<-chan SSEEvent, func())

	// Stop drains queued events and waits for the workers.
	Stop()
}
