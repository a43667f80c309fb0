package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Paper is one arXiv submission, keyed by its versioned arXiv identifier
// (e.g. "2401.12345v1"). Re-ingesting the same identifier updates the
// bibliographic fields in place; each version is its own row.
type Paper struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(50)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title               string `json:"title"`
	Abstract            string `json:"abstract,omitempty" gorm:"type:text"`
	PrimaryCategoryCode string `json:"primary_category_code,omitempty" gorm:"type:varchar(50);index"`
	PDFURL              string `json:"pdf_url,omitempty" gorm:"column:pdf_url"`

	ArxivPublishedAt *time.Time `json:"arxiv_published_at,omitempty" gorm:"index"`
	ArxivUpdatedAt   *time.Time `json:"arxiv_updated_at,omitempty"`

	JournalRef *string `json:"journal_ref,omitempty"`
	DOI        *string `json:"doi,omitempty"`

	// AI-derived fields, filled by downstream tooling, never by ingestion.
	SummaryAI        *string `json:"summary_ai,omitempty" gorm:"type:text"`
	DetailedReviewAI *string `json:"detailed_review_ai,omitempty" gorm:"type:text"`

	TitleAbstractEmbedding *pgvector.Vector `json:"-" gorm:"type:vector(1024)"`
	SummaryReviewEmbedding *pgvector.Vector `json:"-" gorm:"type:vector(1024)"`
}

// TableName sets the explicit table name for GORM.
func (Paper) TableName() string {
	return "papers"
}
