package repository

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores the document, its pages and any initial team shares in one
// transaction.
func (r *DocumentRepository) Create(doc *model.Document, pages []string, shares ...model.DocumentShare) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		for i := range shares {
			shares[i].DocumentID = doc.ID
			if err := tx.Create(&shares[i]).Error; err != nil {
				return err
			}
		}
		if len(pages) == 0 {
			return nil
		}
		rows := make([]model.DocumentPage, len(pages))
		for i, text := range pages {
			rows[i] = model.DocumentPage{DocumentID: doc.ID, Number: i + 1, Text: model.LongText(text)}
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

type DocumentFilter struct {
	// TeamID limits results to documents shared with that team.
	TeamID uint
	Query  string
}

// ListAccessible returns documents owned by userID or shared with any team
// userID belongs to, newest first.
func (r *DocumentRepository) ListAccessible(userID uint, filter DocumentFilter) ([]model.Document, error) {
	q := r.db.Model(&model.Document{})
	if filter.TeamID != 0 {
		q = q.Where("id IN (?)", r.db.Model(&model.DocumentShare{}).
			Select("document_id").
			Where("team_id = ?", filter.TeamID))
	} else {
		memberTeams := r.db.Model(&model.TeamMember{}).Select("team_id").Where("user_id = ?", userID)
		sharedDocs := r.db.Model(&model.DocumentShare{}).Select("document_id").Where("team_id IN (?)", memberTeams)
		q = q.Where(r.db.Where("owner_id = ?", userID).Or("id IN (?)", sharedDocs))
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var docs []model.Document
	if err := q.Order("created_at DESC").Order("id DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateStatus(id uint, status, errMsg string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]any{
		"status": status,
		"error":  truncate(errMsg, 1024),
	}).Error; err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Rename(id uint, name string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Update("name", name).Error; err != nil {
		return fmt.Errorf("rename document failed: %w", err)
	}
	return nil
}

// ListPages returns all pages, or only page number when it is positive.
func (r *DocumentRepository) ListPages(documentID uint, number int) ([]model.DocumentPage, error) {
	q := r.db.Where("document_id = ?", documentID)
	if number > 0 {
		q = q.Where("number = ?", number)
	}
	var pages []model.DocumentPage
	if err := q.Order("number ASC").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list document pages failed: %w", err)
	}
	return pages, nil
}

// Delete removes the document and every row that hangs off it.
func (r *DocumentRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, dep := range []any{
			&model.DocumentChunk{},
			&model.DocumentAnalysis{},
			&model.DocumentPage{},
			&model.Comment{},
			&model.DocumentShare{},
			&model.ChatMessage{},
		} {
			if err := tx.Where("document_id = ?", id).Delete(dep).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Document{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
