package repository

import (
	"fmt"
	"slices"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type ChatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

func (r *ChatMessageRepository) Create(message *model.ChatMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create chat message failed: %w", err)
	}
	return nil
}

// ListRecent returns the latest limit messages in chronological order.
func (r *ChatMessageRepository) ListRecent(documentID, userID uint, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.ChatMessage
	if err := r.db.
		Where("document_id = ? AND user_id = ?", documentID, userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list chat messages failed: %w", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *ChatMessageRepository) DeleteByDocumentUser(documentID, userID uint) error {
	if err := r.db.Where("document_id = ? AND user_id = ?", documentID, userID).Delete(&model.ChatMessage{}).Error; err != nil {
		return fmt.Errorf("delete chat messages failed: %w", err)
	}
	return nil
}
