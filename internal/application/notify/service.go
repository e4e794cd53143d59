package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/claimdesk/claims-api/internal/domain"
	"github.com/claimdesk/claims-api/internal/pkg/id"
)

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

type adminLister interface {
	ListAdmins(ctx context.Context) ([]domain.Profile, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, subject, message string) error
}

type Service interface {
	// NotifyAdmins fans an alert out to every admin. Best effort: all
	// failures are logged and swallowed, never surfaced to the caller.
	NotifyAdmins(ctx context.Context, alert domain.AdminAlert)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
}

type service struct {
	notifications notificationStore
	profiles      adminLister
	publisher     topicPublisher // nil when no topic is configured
}

func NewService(notifications notificationStore, profiles adminLister, publisher topicPublisher) Service {
	return &service{notifications: notifications, profiles: profiles, publisher: publisher}
}

func (s *service) NotifyAdmins(ctx context.Context, alert domain.AdminAlert) {
	admins, err := s.profiles.ListAdmins(ctx)
	if err != nil {
		slog.Warn("admin notification: could not list admins", "err", err)
	}
	now := time.Now().UTC()
	for _, admin := range admins {
		n := &domain.Notification{
			NotificationID: id.New(),
			UserID:         admin.UserID,
			Title:          alert.Title,
			Message:        alert.Message,
			Type:           alert.Type,
			Link:           alert.Link,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.notifications.Put(ctx, n); err != nil {
			slog.Warn("admin notification: could not store notification",
				"admin_id", admin.UserID, "type", alert.Type, "err", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, alert.Title, alert.Message); err != nil {
			slog.Warn("admin notification: topic publish failed", "type", alert.Type, "err", err)
		}
	}
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.notifications.ListUnread(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	n, err := s.notifications.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if err := s.notifications.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}
