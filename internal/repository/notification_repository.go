package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *model.Notification) error {
	if err := r.db.Create(n).Error; err != nil {
		return fmt.Errorf("create notification failed: %w", err)
	}
	return nil
}

func (r *NotificationRepository) List(userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var list []model.Notification
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list notifications failed: %w", err)
	}
	return list, nil
}

func (r *NotificationRepository) CountUnread(userID uint) (int64, error) {
	var n int64
	if err := r.db.Model(&model.Notification{}).Where("user_id = ? AND read_at IS NULL", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count unread notifications failed: %w", err)
	}
	return n, nil
}

// MarkRead reports whether a notification owned by userID was found.
func (r *NotificationRepository) MarkRead(id, userID uint, at time.Time) (bool, error) {
	var n model.Notification
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Limit(1).Find(&n)
	if res.Error != nil {
		return false, fmt.Errorf("get notification failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if n.ReadAt != nil {
		return true, nil
	}
	if err := r.db.Model(&model.Notification{}).Where("id = ?", id).Update("read_at", at).Error; err != nil {
		return false, fmt.Errorf("mark notification read failed: %w", err)
	}
	return true, nil
}

func (r *NotificationRepository) MarkAllRead(userID uint, at time.Time) (int64, error) {
	res := r.db.Model(&model.Notification{}).Where("user_id = ? AND read_at IS NULL", userID).Update("read_at", at)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *NotificationRepository) Delete(id, userID uint) (bool, error) {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	if res.Error != nil {
		return false, fmt.Errorf("delete notification failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
