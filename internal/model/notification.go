package model

import "time"

const (
	NotifyAnalysisReady     = "analysis_ready"
	NotifyAnalysisFailed    = "analysis_failed"
	NotifyDocumentShared    = "document_shared"
	NotifyCommentAdded      = "comment_added"
	NotifyCommentReply      = "comment_reply"
	NotifyTeamInvitation    = "team_invitation"
	NotifyTeamMemberAdded   = "team_member_added"
	NotifyTeamRoleChanged   = "team_role_changed"
	NotifyTeamMemberRemoved = "team_member_removed"
)

type Notification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index:idx_notification_user_read" json:"user_id"`
	Type       string     `gorm:"size:32;not null" json:"type"`
	Title      string     `gorm:"size:256;not null" json:"title"`
	Body       string     `gorm:"size:1024" json:"body"`
	DocumentID *uint      `json:"document_id,omitempty"`
	TeamID     *uint      `json:"team_id,omitempty"`
	ReadAt     *time.Time `gorm:"index:idx_notification_user_read" json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
