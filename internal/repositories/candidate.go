package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

type CandidateRepository interface {
	Create(ctx context.Context, candidate *models.Candidate) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	FindByContactKey(ctx context.Context, key string) (*models.Candidate, error)
	FindByTelegramKey(ctx context.Context, key string) (*models.Candidate, error)
	List(ctx context.Context) ([]models.Candidate, error)
	UpdateTelegramUsername(ctx context.Context, id uuid.UUID, username string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

// Create implements CandidateRepository.
func (r *candidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	if err := r.db.WithContext(ctx).Create(candidate).Error; err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

// FindByID implements CandidateRepository.
func (r *candidateRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&candidate).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}
	return &candidate, nil
}

// FindByContactKey matches a normalized key against both the phone and the
// Telegram handle of a candidate.
func (r *candidateRepository) FindByContactKey(ctx context.Context, key string) (*models.Candidate, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	var candidate models.Candidate
	err := r.db.WithContext(ctx).
		Where("phone_key = ? OR telegram_key = ?", key, key).
		Order("created_at DESC").
		First(&candidate).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find candidate by contact: %w", err)
	}
	return &candidate, nil
}

// FindByTelegramKey implements CandidateRepository.
func (r *candidateRepository) FindByTelegramKey(ctx context.Context, key string) (*models.Candidate, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	var candidate models.Candidate
	err := r.db.WithContext(ctx).
		Where("telegram_key = ?", key).
		Order("created_at DESC").
		First(&candidate).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find candidate by telegram username: %w", err)
	}
	return &candidate, nil
}

// List implements CandidateRepository.
func (r *candidateRepository) List(ctx context.Context) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

// UpdateTelegramUsername implements CandidateRepository.
func (r *candidateRepository) UpdateTelegramUsername(ctx context.Context, id uuid.UUID, username string) error {
	candidate, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	candidate.TelegramUsername = username
	// Save runs the BeforeSave hook so telegram_key follows the username
	if err := r.db.WithContext(ctx).Save(candidate).Error; err != nil {
		return fmt.Errorf("failed to update telegram username: %w", err)
	}
	return nil
}

// Delete removes the candidate together with everything that references it.
func (r *candidateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		if err := tx.Where("candidate_id = ?", id).Delete(&models.DocumentRequest{}).Error; err != nil {
			return fmt.Errorf("failed to delete requests: %w", err)
		}
		if err := tx.Where("candidate_id = ?", id).Delete(&models.ChatLink{}).Error; err != nil {
			return fmt.Errorf("failed to delete chat links: %w", err)
		}
		if err := tx.Where("candidate_id = ?", id).Delete(&models.ChatSession{}).Error; err != nil {
			return fmt.Errorf("failed to delete chat sessions: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.Candidate{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete candidate: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
