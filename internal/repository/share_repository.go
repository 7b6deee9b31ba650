package repository

import (
	"fmt"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type ShareRepository struct {
	db *gorm.DB
}

func NewShareRepository(db *gorm.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// Create shares the document with the team. Sharing twice is a no-op; created
// reports whether a new row was written.
func (r *ShareRepository) Create(share *model.DocumentShare) (created bool, err error) {
	var existing model.DocumentShare
	res := r.db.Where("document_id = ? AND team_id = ?", share.DocumentID, share.TeamID).Limit(1).Find(&existing)
	if res.Error != nil {
		return false, fmt.Errorf("get document share failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		*share = existing
		return false, nil
	}
	if err := r.db.Create(share).Error; err != nil {
		return false, fmt.Errorf("create document share failed: %w", err)
	}
	return true, nil
}

func (r *ShareRepository) Delete(documentID, teamID uint) (bool, error) {
	res := r.db.Where("document_id = ? AND team_id = ?", documentID, teamID).Delete(&model.DocumentShare{})
	if res.Error != nil {
		return false, fmt.Errorf("delete document share failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SharedTeam is a team a document is shared with.
type SharedTeam struct {
	TeamID     uint   `json:"team_id"`
	TeamName   string `json:"team_name"`
	SharedByID uint   `json:"shared_by_id"`
}

func (r *ShareRepository) ListByDocument(documentID uint) ([]SharedTeam, error) {
	var out []SharedTeam
	if err := r.db.Model(&model.DocumentShare{}).
		Select("document_shares.team_id, teams.name AS team_name, document_shares.shared_by_id").
		Joins("JOIN teams ON teams.id = document_shares.team_id").
		Where("document_shares.document_id = ?", documentID).
		Order("document_shares.created_at ASC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list document shares failed: %w", err)
	}
	return out, nil
}

// RolesForDocument returns userID's roles in every team the document is shared with.
func (r *ShareRepository) RolesForDocument(documentID, userID uint) ([]string, error) {
	var roles []string
	if err := r.db.Model(&model.TeamMember{}).
		Joins("JOIN document_shares ON document_shares.team_id = team_members.team_id").
		Where("document_shares.document_id = ? AND team_members.user_id = ?", documentID, userID).
		Pluck("team_members.role", &roles).Error; err != nil {
		return nil, fmt.Errorf("list document roles failed: %w", err)
	}
	return roles, nil
}
