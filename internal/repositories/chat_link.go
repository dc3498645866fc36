package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

type ChatLinkRepository interface {
	FindByChatID(ctx context.Context, chatID string) (*models.ChatLink, error)
	FindByCandidateID(ctx context.Context, candidateID uuid.UUID) (*models.ChatLink, error)
	Upsert(ctx context.Context, candidateID uuid.UUID, chatID, identity string) error
}

type chatLinkRepository struct {
	db *gorm.DB
}

func NewChatLinkRepository(db *gorm.DB) ChatLinkRepository {
	return &chatLinkRepository{db: db}
}

// FindByChatID returns the most recent link for the chat.
func (r *chatLinkRepository) FindByChatID(ctx context.Context, chatID string) (*models.ChatLink, error) {
	var link models.ChatLink
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("updated_at DESC").
		First(&link).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find chat link: %w", err)
	}
	return &link, nil
}

// FindByCandidateID implements ChatLinkRepository.
func (r *chatLinkRepository) FindByCandidateID(ctx context.Context, candidateID uuid.UUID) (*models.ChatLink, error) {
	var link models.ChatLink
	if err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&link).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find chat link: %w", err)
	}
	return &link, nil
}

// Upsert points the candidate at chatID and drops any other candidate the
// chat was pointing at, so a chat never routes to two candidates.
func (r *chatLinkRepository) Upsert(ctx context.Context, candidateID uuid.UUID, chatID, identity string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("chat_id = ? AND candidate_id <> ?", chatID, candidateID).
			Delete(&models.ChatLink{}).Error; err != nil {
			return fmt.Errorf("failed to clear stale chat links: %w", err)
		}

		link := models.ChatLink{
			CandidateID:      candidateID,
			ChatID:           chatID,
			TelegramIdentity: identity,
			UpdatedAt:        time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chat_id", "telegram_identity", "updated_at"}),
		}).Create(&link).Error; err != nil {
			return fmt.Errorf("failed to upsert chat link: %w", err)
		}
		return nil
	})
}
