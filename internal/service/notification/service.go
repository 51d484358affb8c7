package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/i18n"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/observability"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

// Config holds notification service configuration
type Config struct {
	WorkerCount int           // default: 2
	QueueSize   int           // default: 1000
	Timeout     time.Duration // default: 30 seconds, per event
	Locale      string        // default: i18n default locale
}

type service struct {
	users    user.UserRepository
	projects project.ProjectRepository
	mailer   email.EmailService
	hub      *sse.Hub
	config   Config

	mu     sync.RWMutex
	closed bool
	queue  chan notification.Event
	wg     sync.WaitGroup
}

// NewNotificationService creates a dispatcher with background workers
func NewNotificationService(
	users user.UserRepository,
	projects project.ProjectRepository,
	mailer email.EmailService,
	hub *sse.Hub,
	cfg Config,
) notification.Dispatcher {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &service{
		users:    users,
		projects: projects,
		mailer:   mailer,
		hub:      hub,
		config:   cfg,
		queue:    make(chan notification.Event, cfg.QueueSize),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Notification dispatcher started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	return s
}

func (s *service) worker(id int) {
	defer s.wg.Done()

	for event := range s.queue {
		s.deliver(id, event)
	}
}

// Dispatch queues event without blocking. A full queue drops it.
func (s *service) Dispatch(ctx context.Context, event notification.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		slog.Warn("Notification dropped", "event", event.Type, "request_id", event.RequestID, "error", notification.ErrDispatcherClosed)
		metrics.Notifications.WithLabelValues(string(event.Type), "dropped").Inc()
		return
	}

	select {
	case s.queue <- event:
	default:
		slog.Warn("Notification dropped", "event", event.Type, "request_id", event.RequestID, "error", notification.ErrQueueFull)
		metrics.Notifications.WithLabelValues(string(event.Type), "dropped").Inc()
	}
}

func (s *service) deliver(workerID int, event notification.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()
	if s.config.Locale != "" {
		ctx = i18n.WithLocale(ctx, s.config.Locale)
	}

	requester, recipients, err := s.recipients(ctx, event)
	if err != nil {
		s.fail(ctx, event, fmt.Errorf("resolve recipients: %w", err))
		return
	}

	ids := make([]string, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ID)
	}
	s.hub.PublishToMany(ids, sse.Event{Name: "notification", Data: toInAppMessage(event)})

	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		if err := s.send(ctx, event, requester, r); err != nil {
			s.fail(ctx, event, fmt.Errorf("send to %s: %w", r.ID, err))
			continue
		}
		metrics.Notifications.WithLabelValues(string(event.Type), "sent").Inc()
	}

	slog.Debug("Notification delivered", "worker", workerID, "event", event.Type, "request_id", event.RequestID, "recipients", len(recipients))
}

func (s *service) fail(ctx context.Context, event notification.Event, err error) {
	slog.Error("Notification delivery failed", "event", event.Type, "request_id", event.RequestID, "error", err)
	metrics.Notifications.WithLabelValues(string(event.Type), "failed").Inc()
	observability.CaptureErrWithTags(ctx, err, map[string]string{
		"component": "notification",
		"event":     string(event.Type),
	})
}

// recipients returns the requester and the users to notify. New requests go
// to the requester's manager and the project owners; decisions go back to
// the requester.
func (s *service) recipients(ctx context.Context, event notification.Event) (user.User, []user.User, error) {
	requester, err := s.users.GetByID(ctx, event.RequesterID)
	if err != nil {
		return user.User{}, nil, err
	}

	switch event.Type {
	case notification.EventRequestDecided:
		return requester, []user.User{requester}, nil
	case notification.EventRequestCreated:
	default:
		return requester, nil, fmt.Errorf("unknown event type %q", event.Type)
	}

	var candidates []user.User
	if requester.ManagerID != nil {
		managers, err := s.users.GetByIDs(ctx, []string{*requester.ManagerID})
		if err != nil {
			return requester, nil, err
		}
		candidates = append(candidates, managers...)
	}
	if event.ProjectID != nil {
		owners, err := s.projects.ListOwners(ctx, *event.ProjectID)
		if err != nil {
			return requester, nil, err
		}
		candidates = append(candidates, owners...)
	}

	seen := map[string]struct{}{requester.ID: {}}
	out := make([]user.User, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup || !c.IsActive {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return requester, out, nil
}

func (s *service) send(ctx context.Context, event notification.Event, requester, to user.User) error {
	start := event.StartDate.Format(validator.DateLayout)
	end := event.EndDate.Format(validator.DateLayout)

	if event.Type == notification.EventRequestDecided {
		data := email.RequestDecidedData{
			RecipientName: to.Name,
			Type:          event.RequestType,
			StartDate:     start,
			EndDate:       end,
			Decision:      event.Decision,
		}
		if event.Comment != nil {
			data.Comment = *event.Comment
		}
		return s.mailer.SendRequestDecided(ctx, to.Email, data)
	}

	return s.mailer.SendRequestCreated(ctx, to.Email, email.RequestCreatedData{
		RecipientName: to.Name,
		RequesterName: requester.Name,
		Type:          event.RequestType,
		StartDate:     start,
		EndDate:       end,
		Reason:        event.Reason,
	})
}

func toInAppMessage(event notification.Event) notification.InAppMessage {
	return notification.InAppMessage{
		Type:        event.Type,
		RequestID:   event.RequestID,
		RequestType: event.RequestType,
		StartDate:   event.StartDate.Format(validator.DateLayout),
		EndDate:     event.EndDate.Format(validator.DateLayout),
		Decision:    event.Decision,
		OccurredAt:  event.OccurredAt,
	}
}

// Subscribe creates an SSE subscription for a user
func (s *service) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	ch, cleanup := s.hub.Subscribe(userID)

	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				msg, ok := event.Data.(notification.InAppMessage)
				if !ok {
					continue
				}
				select {
				case out <- notification.SSEEvent{Event: event.Name, Data: msg}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop drains the queue and waits for in-flight deliveries
func (s *service) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("Notification dispatcher stopped")
}
