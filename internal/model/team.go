package model

import "time"

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

type Team struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:512" json:"description"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_team_user;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
	InvitationRevoked  = "revoked"
	InvitationExpired  = "expired"
)

type TeamInvitation struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TeamID      uint       `gorm:"not null;index" json:"team_id"`
	Email       string     `gorm:"size:128;not null;index" json:"email"`
	Role        string     `gorm:"size:16;not null" json:"role"`
	Token       string     `gorm:"size:64;not null;uniqueIndex" json:"token,omitempty"`
	Status      string     `gorm:"size:16;not null" json:"status"`
	InvitedByID uint       `gorm:"not null" json:"invited_by_id"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EffectiveStatus reports expired for pending invitations past their deadline.
func (i *TeamInvitation) EffectiveStatus(now time.Time) string {
	if i.Status == InvitationPending && now.After(i.ExpiresAt) {
		return InvitationExpired
	}
	return i.Status
}

// DocumentShare grants a team's members access to a document.
type DocumentShare struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;uniqueIndex:idx_share_doc_team" json:"document_id"`
	TeamID     uint      `gorm:"not null;uniqueIndex:idx_share_doc_team;index" json:"team_id"`
	SharedByID uint      `gorm:"not null" json:"shared_by_id"`
	CreatedAt  time.Time `json:"created_at"`
}
