package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(comment *model.Comment) error {
	if err := r.db.Create(comment).Error; err != nil {
		return fmt.Errorf("create comment failed: %w", err)
	}
	return nil
}

func (r *CommentRepository) GetByID(id uint) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get comment failed: %w", err)
	}
	return &comment, nil
}

func (r *CommentRepository) ListByDocument(documentID uint) ([]model.Comment, error) {
	var list []model.Comment
	if err := r.db.Where("document_id = ?", documentID).Order("created_at ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list comments failed: %w", err)
	}
	return list, nil
}

func (r *CommentRepository) UpdateBody(id uint, body string) error {
	if err := r.db.Model(&model.Comment{}).Where("id = ?", id).Update("body", body).Error; err != nil {
		return fmt.Errorf("update comment failed: %w", err)
	}
	return nil
}

func (r *CommentRepository) SetResolved(id uint, resolved bool) error {
	if err := r.db.Model(&model.Comment{}).Where("id = ?", id).Update("resolved", resolved).Error; err != nil {
		return fmt.Errorf("resolve comment failed: %w", err)
	}
	return nil
}

// Delete removes the comment and its replies.
func (r *CommentRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Comment{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete comment failed: %w", err)
	}
	return nil
}
