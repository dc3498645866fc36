package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentTypePAN     DocumentType = "PAN"
	DocumentTypeAadhaar DocumentType = "Aadhaar"
)

type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusCollected DocumentStatus = "collected"
)

// DocumentSource records how a document reached us.
type DocumentSource string

const (
	SourcePhoto  DocumentSource = "photo"
	SourceFile   DocumentSource = "file"
	SourceText   DocumentSource = "text"
	SourceManual DocumentSource = "manual"
)

type Document struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"candidate_id"`
	Type             DocumentType   `gorm:"type:text;not null" json:"type"`
	Path             string         `gorm:"type:text" json:"path"`
	OriginalFileName string         `gorm:"type:text" json:"original_filename,omitempty"`
	Source           DocumentSource `gorm:"type:text" json:"source"`
	Status           DocumentStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	CreatedAt        time.Time      `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentRequest is an audit row written whenever collection is initiated from the dashboard.
type DocumentRequest struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateID uuid.UUID `gorm:"type:uuid;not null;index" json:"candidate_id"`
	RequestText string    `gorm:"type:text" json:"request_text"`
	CreatedAt   time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (DocumentRequest) TableName() string {
	return "requests"
}
