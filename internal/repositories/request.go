package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

type DocumentRequestRepository interface {
	Create(ctx context.Context, request *models.DocumentRequest) error
}

type documentRequestRepository struct {
	db *gorm.DB
}

func NewDocumentRequestRepository(db *gorm.DB) DocumentRequestRepository {
	return &documentRequestRepository{db: db}
}

func (r *documentRequestRepository) Create(ctx context.Context, request *models.DocumentRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return fmt.Errorf("failed to create document request: %w", err)
	}
	return nil
}
