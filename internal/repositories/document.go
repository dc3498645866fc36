package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	CreateBatch(ctx context.Context, documents []*models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	FindByCandidateID(ctx context.Context, candidateID uuid.UUID) ([]models.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create implements DocumentRepository.
func (d *documentRepository) Create(ctx context.Context, document *models.Document) error {
	if err := d.db.WithContext(ctx).Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// CreateBatch inserts all documents or none.
func (d *documentRepository) CreateBatch(ctx context.Context, documents []*models.Document) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, doc := range documents {
			if err := tx.Create(doc).Error; err != nil {
				return fmt.Errorf("failed to create %s document: %w", doc.Type, err)
			}
		}
		return nil
	})
}

// FindByID implements DocumentRepository.
func (d *documentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// FindByCandidateID returns the candidate's documents, newest first.
func (d *documentRepository) FindByCandidateID(ctx context.Context, candidateID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	if err := d.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	return docs, nil
}
