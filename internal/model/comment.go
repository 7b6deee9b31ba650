package model

import "time"

type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	ParentID   *uint     `gorm:"index" json:"parent_id,omitempty"`
	Page       int       `json:"page,omitempty"`
	Quote      string    `gorm:"size:1024" json:"quote,omitempty"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	Resolved   bool      `gorm:"not null;default:false" json:"resolved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
