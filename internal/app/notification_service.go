package app

import (
	"time"

	"go.uber.org/zap"

	"legiseye/internal/logging"
	"legiseye/internal/model"
	"legiseye/internal/repository"
)

type NotificationService struct {
	repo   *repository.NotificationRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewNotificationService(repo *repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Notify stores a notification. Failures are logged and never returned.
func (s *NotificationService) Notify(n model.Notification) {
	if s == nil || n.UserID == 0 {
		return
	}
	if err := s.repo.Create(&n); err != nil {
		s.logger.Warn("create notification failed",
			zap.Uint("user_id", n.UserID),
			zap.String("type", n.Type),
			zap.Error(err))
	}
}

// NotifyAll sends n to every user except the actor.
func (s *NotificationService) NotifyAll(userIDs []uint, actorID uint, n model.Notification) {
	seen := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		if id == actorID || seen[id] {
			continue
		}
		seen[id] = true
		n.UserID = id
		s.Notify(n)
	}
}

func (s *NotificationService) List(userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.List(userID, unreadOnly, limit)
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	if userID == 0 {
		return 0, ErrInvalidInput
	}
	return s.repo.CountUnread(userID)
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	if userID == 0 || id == 0 {
		return ErrInvalidInput
	}
	found, err := s.repo.MarkRead(id, userID, s.now())
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	if userID == 0 {
		return 0, ErrInvalidInput
	}
	return s.repo.MarkAllRead(userID, s.now())
}

func (s *NotificationService) Delete(userID, id uint) error {
	if userID == 0 || id == 0 {
		return ErrInvalidInput
	}
	found, err := s.repo.Delete(id, userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

func uintPtr(v uint) *uint {
	return &v
}
