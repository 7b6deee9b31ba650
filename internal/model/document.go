package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusAnalyzed   = "analyzed"
	DocumentStatusFailed     = "failed"
)

// LongText holds extracted document text. MySQL TEXT stops at 64 KiB, so the
// column is LONGTEXT there and TEXT on the other drivers.
type LongText string

func (LongText) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return "longtext"
	}
	return "text"
}

type Document struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OwnerID      uint      `gorm:"not null;index" json:"owner_id"`
	Name         string    `gorm:"size:256;not null" json:"name"`
	OriginalName string    `gorm:"size:256;not null" json:"original_name"`
	ContentType  string    `gorm:"size:64;not null" json:"content_type"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	StoragePath  string    `gorm:"size:512;not null" json:"-"`
	PageCount    int       `gorm:"not null" json:"page_count"`
	Status       string    `gorm:"size:16;not null;index" json:"status"`
	Error        string    `gorm:"size:1024" json:"error,omitempty"`
	Text         LongText  `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentPage keeps extracted text per page for highlighting.
type DocumentPage struct {
	ID         uint     `gorm:"primaryKey" json:"-"`
	DocumentID uint     `gorm:"not null;uniqueIndex:idx_page_doc_number" json:"document_id"`
	Number     int      `gorm:"not null;uniqueIndex:idx_page_doc_number" json:"number"`
	Text       LongText `gorm:"not null" json:"text"`
}

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

type RiskFactor struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Clause      string `json:"clause,omitempty"`
}

type GlossaryTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// DocumentAnalysis is the structured AI analysis attached to a document.
type DocumentAnalysis struct {
	ID            uint                              `gorm:"primaryKey" json:"-"`
	DocumentID    uint                              `gorm:"not null;uniqueIndex" json:"document_id"`
	Summary       string                            `gorm:"type:text;not null" json:"summary"`
	DocumentType  string                            `gorm:"size:128" json:"document_type"`
	RiskScore     int                               `gorm:"not null" json:"risk_score"`
	KeyPoints     datatypes.JSONSlice[string]       `json:"key_points"`
	RiskFactors   datatypes.JSONSlice[RiskFactor]   `json:"risk_factors"`
	GlossaryTerms datatypes.JSONSlice[GlossaryTerm] `json:"glossary_terms"`
	Model         string                            `gorm:"size:128" json:"model"`
	CreatedAt     time.Time                         `json:"created_at"`
	UpdatedAt     time.Time                         `json:"updated_at"`
}
