package service

import (
	"context"
	"fmt"

	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// notificationService implements NotificationService.
type notificationService struct {
	repo   repository.NotificationRepository
	logger zerolog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(repo repository.NotificationRepository, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

func recipientType(role model.Role) model.RecipientType {
	if role == model.RoleRestaurant {
		return model.RecipientRestaurant
	}
	return model.RecipientConsumer
}

// List returns a page of the recipient's notifications with the unread count.
func (s *notificationService) List(ctx context.Context, recipient model.Identity, unreadOnly bool, page model.Page) (*model.NotificationList, error) {
	page = page.Normalize()
	kind := recipientType(recipient.Role)

	items, total, err := s.repo.List(ctx, recipient.ID, kind, unreadOnly, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, recipient.ID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &model.NotificationList{
		PageResult:  model.NewPageResult(items, total, page),
		UnreadCount: unread,
	}, nil
}

// MarkRead marks one of the recipient's notifications read.
func (s *notificationService) MarkRead(ctx context.Context, recipient model.Identity, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, recipient.ID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return model.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the recipient read.
func (s *notificationService) MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, recipient.ID, recipientType(recipient.Role))
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	s.logger.Debug().Str("recipient_id", recipient.ID.String()).Int64("count", n).Msg("notifications marked read")
	return n, nil
}

// Delete removes one of the recipient's notifications.
func (s *notificationService) Delete(ctx context.Context, recipient model.Identity, id uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, recipient.ID, recipientType(recipient.Role), id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !ok {
		return model.ErrNotificationNotFound
	}
	return nil
}
