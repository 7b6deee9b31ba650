package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create stores the team and makes its owner the first member.
func (r *TeamRepository) Create(team *model.Team) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		return tx.Create(&model.TeamMember{TeamID: team.ID, UserID: team.OwnerID, Role: model.RoleOwner}).Error
	})
	if err != nil {
		return fmt.Errorf("create team failed: %w", err)
	}
	return nil
}

func (r *TeamRepository) GetByID(id uint) (*model.Team, error) {
	var team model.Team
	if err := r.db.First(&team, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team failed: %w", err)
	}
	return &team, nil
}

func (r *TeamRepository) Update(id uint, name, description string) error {
	if err := r.db.Model(&model.Team{}).Where("id = ?", id).Updates(map[string]any{
		"name":        name,
		"description": description,
	}).Error; err != nil {
		return fmt.Errorf("update team failed: %w", err)
	}
	return nil
}

// TeamSummary is a team as seen by one of its members.
type TeamSummary struct {
	model.Team
	Role        string `json:"role"`
	MemberCount int    `json:"member_count"`
}

func (r *TeamRepository) ListForUser(userID uint) ([]TeamSummary, error) {
	var out []TeamSummary
	counts := r.db.Model(&model.TeamMember{}).Select("COUNT(*)").Where("team_members.team_id = teams.id")
	if err := r.db.Model(&model.Team{}).
		Select("teams.*, team_members.role AS role, (?) AS member_count", counts).
		Joins("JOIN team_members ON team_members.team_id = teams.id AND team_members.user_id = ?", userID).
		Order("teams.created_at DESC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list teams failed: %w", err)
	}
	return out, nil
}

// Delete removes the team, its members, invitations and shares.
func (r *TeamRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, dep := range []any{&model.TeamMember{}, &model.TeamInvitation{}, &model.DocumentShare{}} {
			if err := tx.Where("team_id = ?", id).Delete(dep).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Team{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete team failed: %w", err)
	}
	return nil
}

// TransferOwnership makes newOwnerID the owner and demotes the previous owner to admin.
func (r *TeamRepository) TransferOwnership(teamID, oldOwnerID, newOwnerID uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Team{}).Where("id = ?", teamID).Update("owner_id", newOwnerID).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, oldOwnerID).
			Update("role", model.RoleAdmin).Error; err != nil {
			return err
		}
		return tx.Model(&model.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, newOwnerID).
			Update("role", model.RoleOwner).Error
	})
	if err != nil {
		return fmt.Errorf("transfer team ownership failed: %w", err)
	}
	return nil
}
