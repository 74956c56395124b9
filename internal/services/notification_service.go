package services

import (
	"context"
	"log/slog"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService struct {
	notifications models.NotificationsRepo
	logger        *slog.Logger
	now           Clock
}

func NewNotificationService(notifications models.NotificationsRepo, logger *slog.Logger, now Clock) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        logger,
		now:           orNow(now),
	}
}

// Notify stores a notification for userID. It never fails the caller; a
// lost notification is logged and dropped.
func (ns *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, kind, title, message string, data bson.M) {
	if ns == nil || userID.IsZero() {
		return
	}
	n := &models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: ns.now(),
	}
	if err := ns.notifications.CreateNotification(ctx, n); err != nil {
		ns.logger.Error("failed to store notification",
			"user_id", userID.Hex(),
			"type", kind,
			"error", err,
		)
	}
}

func (ns *NotificationService) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	items, total, err := ns.notifications.ListNotifications(ctx, userID, unreadOnly, offset, limit)
	if err != nil {
		return nil, 0, apperr.Store(err, "failed to list notifications")
	}
	return items, total, nil
}

func (ns *NotificationService) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	ok, err := ns.notifications.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return apperr.Store(err, "failed to update notification")
	}
	if !ok {
		return apperr.NotFound("notification not found")
	}
	return nil
}
