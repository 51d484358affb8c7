package notification

import "errors"

// Notification domain errors
var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is stopped")
)
