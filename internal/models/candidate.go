package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parassrivastav/traqcheck-test/internal/contact"
)

type CompanyHistory struct {
	Company     string `json:"company"`
	Designation string `json:"designation"`
	Duration    string `json:"duration,omitempty"`
}

type Candidate struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name             string           `gorm:"type:text" json:"name"`
	Email            string           `gorm:"type:text" json:"email"`
	Phone            string           `gorm:"type:text" json:"phone"`
	Company          string           `gorm:"type:text" json:"company"`
	Designation      string           `gorm:"type:text" json:"designation"`
	Skills           []string         `gorm:"type:jsonb;serializer:json" json:"skills"`
	CompanyHistory   []CompanyHistory `gorm:"type:jsonb;serializer:json" json:"company_history"`
	Confidence       float64          `gorm:"type:decimal(3,2)" json:"confidence"`
	ResumePath       string           `gorm:"type:text" json:"-"`
	TelegramUsername string           `gorm:"type:text" json:"telegram_username"`
	PhoneKey         string           `gorm:"type:text;index" json:"-"`
	TelegramKey      string           `gorm:"type:text;index" json:"-"`
	CreatedAt        time.Time        `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// BeforeSave keeps the normalized lookup keys in sync with the contact fields.
func (c *Candidate) BeforeSave(tx *gorm.DB) error {
	c.RefreshContactKeys()
	return nil
}

func (c *Candidate) RefreshContactKeys() {
	c.PhoneKey = contact.Normalize(c.Phone)
	c.TelegramKey = contact.NormalizeHandle(c.TelegramUsername)
}

// DisplayName falls back to a neutral greeting when extraction found no name.
func (c *Candidate) DisplayName() string {
	if c == nil || c.Name == "" || c.Name == NotFound {
		return "there"
	}
	return c.Name
}

const NotFound = "Not found"
