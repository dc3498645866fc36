package models

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a position in the two-document collection sequence.
type Stage string

const (
	StagePAN     Stage = "pan"
	StageAadhaar Stage = "aadhaar"
	StageDone    Stage = "done"
)

// Next returns the stage that follows an accepted submission.
// StageDone is terminal.
func (s Stage) Next() Stage {
	switch s {
	case StagePAN:
		return StageAadhaar
	default:
		return StageDone
	}
}

// DocumentType is the document collected while in this stage. The terminal
// stage reports the second type; callers must not record anything for it.
func (s Stage) DocumentType() DocumentType {
	if s == StagePAN {
		return DocumentTypePAN
	}
	return DocumentTypeAadhaar
}

func (s Stage) IsTerminal() bool {
	return s == StageDone
}

func (s Stage) Valid() bool {
	switch s {
	case StagePAN, StageAadhaar, StageDone:
		return true
	}
	return false
}

// ChatLink maps a chat identity to exactly one candidate. The candidate id is
// the primary key so relinking a candidate moves its row to the new chat.
type ChatLink struct {
	CandidateID      uuid.UUID `gorm:"type:uuid;primary_key" json:"candidate_id"`
	ChatID           string    `gorm:"type:text;not null;index" json:"chat_id"`
	TelegramIdentity string    `gorm:"type:text" json:"telegram_identity"`
	UpdatedAt        time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (ChatLink) TableName() string {
	return "telegram_links"
}

// ChatSession is the durable collection state of one chat identity.
type ChatSession struct {
	ChatID      string    `gorm:"type:text;primary_key" json:"chat_id"`
	CandidateID uuid.UUID `gorm:"type:uuid;not null" json:"candidate_id"`
	Stage       Stage     `gorm:"type:text;not null;default:'pan'" json:"stage"`
	History     string    `gorm:"type:text" json:"history"`
	UpdatedAt   time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (ChatSession) TableName() string {
	return "telegram_sessions"
}
