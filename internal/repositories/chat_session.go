package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

type ChatSessionRepository interface {
	FindByChatID(ctx context.Context, chatID string) (*models.ChatSession, error)
	Upsert(ctx context.Context, session *models.ChatSession) error
	Delete(ctx context.Context, chatID string) error
	// RecordSubmission stores the document and the advanced session atomically.
	RecordSubmission(ctx context.Context, doc *models.Document, session *models.ChatSession) error
}

type chatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) ChatSessionRepository {
	return &chatSessionRepository{db: db}
}

// FindByChatID implements ChatSessionRepository.
func (r *chatSessionRepository) FindByChatID(ctx context.Context, chatID string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&session).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find chat session: %w", err)
	}
	return &session, nil
}

// Upsert implements ChatSessionRepository.
func (r *chatSessionRepository) Upsert(ctx context.Context, session *models.ChatSession) error {
	return upsertSession(r.db.WithContext(ctx), session)
}

// Delete implements ChatSessionRepository.
func (r *chatSessionRepository) Delete(ctx context.Context, chatID string) error {
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.ChatSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}

// RecordSubmission implements ChatSessionRepository.
func (r *chatSessionRepository) RecordSubmission(ctx context.Context, doc *models.Document, session *models.ChatSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		return upsertSession(tx, session)
	})
}

func upsertSession(db *gorm.DB, session *models.ChatSession) error {
	session.UpdatedAt = time.Now()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"candidate_id", "stage", "history", "updated_at"}),
	}).Create(session).Error
	if err != nil {
		return fmt.Errorf("failed to upsert chat session: %w", err)
	}
	return nil
}
