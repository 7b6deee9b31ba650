package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"legiseye/internal/model"
)

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(inv *model.TeamInvitation) error {
	if err := r.db.Create(inv).Error; err != nil {
		return fmt.Errorf("create invitation failed: %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetByToken(token string) (*model.TeamInvitation, error) {
	return r.first("token = ?", token)
}

func (r *InvitationRepository) GetByID(id uint) (*model.TeamInvitation, error) {
	return r.first("id = ?", id)
}

// FindPending returns an unexpired pending invitation for email to team.
func (r *InvitationRepository) FindPending(teamID uint, email string, now time.Time) (*model.TeamInvitation, error) {
	var inv model.TeamInvitation
	if err := r.db.
		Where("team_id = ? AND email = ? AND status = ? AND expires_at > ?", teamID, email, model.InvitationPending, now).
		First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending invitation failed: %w", err)
	}
	return &inv, nil
}

func (r *InvitationRepository) ListByTeam(teamID uint) ([]model.TeamInvitation, error) {
	var list []model.TeamInvitation
	if err := r.db.Where("team_id = ?", teamID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list team invitations failed: %w", err)
	}
	return list, nil
}

func (r *InvitationRepository) ListPendingByEmail(email string, now time.Time) ([]model.TeamInvitation, error) {
	var list []model.TeamInvitation
	if err := r.db.
		Where("email = ? AND status = ? AND expires_at > ?", email, model.InvitationPending, now).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list pending invitations failed: %w", err)
	}
	return list, nil
}

func (r *InvitationRepository) SetStatus(id uint, status string, at time.Time) error {
	if err := r.db.Model(&model.TeamInvitation{}).Where("id = ?", id).Updates(map[string]any{
		"status":       status,
		"responded_at": at,
	}).Error; err != nil {
		return fmt.Errorf("update invitation status failed: %w", err)
	}
	return nil
}

// Accept marks the invitation accepted and adds the membership atomically.
func (r *InvitationRepository) Accept(inv *model.TeamInvitation, userID uint, at time.Time) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.TeamInvitation{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"status":       model.InvitationAccepted,
			"responded_at": at,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&model.TeamMember{TeamID: inv.TeamID, UserID: userID, Role: inv.Role}).Error
	})
	if err != nil {
		return fmt.Errorf("accept invitation failed: %w", err)
	}
	return nil
}

func (r *InvitationRepository) first(query string, arg any) (*model.TeamInvitation, error) {
	var inv model.TeamInvitation
	if err := r.db.Where(query, arg).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query invitation failed: %w", err)
	}
	return &inv, nil
}
