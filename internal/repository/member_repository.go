package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(member *model.TeamMember) error {
	if err := r.db.Create(member).Error; err != nil {
		return fmt.Errorf("create team member failed: %w", err)
	}
	return nil
}

func (r *MemberRepository) Get(teamID, userID uint) (*model.TeamMember, error) {
	var member model.TeamMember
	if err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get team member failed: %w", err)
	}
	return &member, nil
}

// MemberView joins a membership with the member's public profile.
type MemberView struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (r *MemberRepository) ListByTeam(teamID uint) ([]MemberView, error) {
	var out []MemberView
	if err := r.db.Model(&model.TeamMember{}).
		Select("team_members.user_id, users.username, users.email, users.display_name, team_members.role").
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id = ?", teamID).
		Order("team_members.created_at ASC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list team members failed: %w", err)
	}
	return out, nil
}

func (r *MemberRepository) ListUserIDs(teamID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.TeamMember{}).Where("team_id = ?", teamID).Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list team member ids failed: %w", err)
	}
	return ids, nil
}

func (r *MemberRepository) UpdateRole(teamID, userID uint, role string) error {
	if err := r.db.Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role).Error; err != nil {
		return fmt.Errorf("update member role failed: %w", err)
	}
	return nil
}

func (r *MemberRepository) Delete(teamID, userID uint) error {
	if err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&model.TeamMember{}).Error; err != nil {
		return fmt.Errorf("delete team member failed: %w", err)
	}
	return nil
}
