package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"legiseye/internal/model"
)

type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts the analysis or replaces the existing one for the document.
func (r *AnalysisRepository) Save(analysis *model.DocumentAnalysis) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "document_type", "risk_score", "key_points",
			"risk_factors", "glossary_terms", "model", "updated_at",
		}),
	}).Create(analysis).Error; err != nil {
		return fmt.Errorf("save analysis failed: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByDocumentID(documentID uint) (*model.DocumentAnalysis, error) {
	var analysis model.DocumentAnalysis
	if err := r.db.Where("document_id = ?", documentID).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get analysis failed: %w", err)
	}
	return &analysis, nil
}
