package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// InboxLimit caps how many notifications a user listing returns.
const InboxLimit = 50

// Compile-time check to ensure NotificationServiceImpl implements NotificationService
var _ NotificationService = (*NotificationServiceImpl)(nil)

// Publisher fans a persisted notification out to other consumers
type Publisher interface {
	Publish(message interface{}, routingKey string) error
}

// NotificationServiceImpl persists notifications and optionally republishes them
type NotificationServiceImpl struct {
	notificationRepo repositories.NotificationRepository
	publisher        Publisher
	clock            Clock
}

// NewNotificationService creates a new NotificationServiceImpl. publisher may be nil.
func NewNotificationService(notificationRepo repositories.NotificationRepository, publisher Publisher, clock Clock) *NotificationServiceImpl {
	if clock == nil {
		clock = SystemClock{}
	}
	return &NotificationServiceImpl{
		notificationRepo: notificationRepo,
		publisher:        publisher,
		clock:            clock,
	}
}

// Notify stores a notification for userID. Publishing is best effort.
func (s *NotificationServiceImpl) Notify(ctx context.Context, userID primitive.ObjectID, title, message, kind string) error {
	n := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		CreatedAt: s.clock.Now(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		slog.Error("Failed to store notification", "error", err, "userId", userID.Hex(), "kind", kind)
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(n, "notification."+kind); err != nil {
			slog.Warn("Failed to publish notification", "error", err, "notificationId", n.ID.Hex(), "kind", kind)
		}
	}
	return nil
}

// GetUserNotifications returns the newest notifications of a user
func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error) {
	notifications, err := s.notificationRepo.FindByUser(ctx, userID, InboxLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags one of the user's notifications as read
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	err := s.notificationRepo.MarkRead(ctx, id, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id.Hex())
	}
	return err
}
