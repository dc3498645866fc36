package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/models"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
	"github.com/parassrivastav/traqcheck-test/internal/services"
)

var manualDocumentExts = []string{".pdf", ".jpg", ".jpeg", ".png", ".txt"}

type DocumentHandler struct {
	candidates  repositories.CandidateRepository
	documents   repositories.DocumentRepository
	storage     services.StorageService
	maxFileSize int64
	logger      *zap.Logger
}

func NewDocumentHandler(
	candidates repositories.CandidateRepository,
	documents repositories.DocumentRepository,
	storage services.StorageService,
	maxFileSize int64,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		candidates:  candidates,
		documents:   documents,
		storage:     storage,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

func (h *DocumentHandler) HandleList(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid candidate ID"})
	}

	documents, err := h.documents.FindByCandidateID(c.UserContext(), candidateID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	responses := make([]models.DocumentResponse, 0, len(documents))
	for _, doc := range documents {
		responses = append(responses, models.DocumentResponse{
			ID:      doc.ID.String(),
			Type:    doc.Type,
			Path:    doc.Path,
			Status:  doc.Status,
			Source:  doc.Source,
			FileURL: fmt.Sprintf("/api/v1/documents/%s/file", doc.ID),
		})
	}
	return c.JSON(responses)
}

func (h *DocumentHandler) HandleFile(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid document ID"})
	}

	doc, err := h.documents.FindByID(c.UserContext(), docID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Document not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load document"})
	}

	if doc.Path == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Document file missing"})
	}
	if _, err := os.Stat(doc.Path); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Document file missing"})
	}

	return c.SendFile(doc.Path)
}

// HandleSubmit stores a PAN and an Aadhaar uploaded together from the dashboard.
func (h *DocumentHandler) HandleSubmit(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid candidate ID"})
	}

	ctx := c.UserContext()
	if _, err := h.candidates.FindByID(ctx, candidateID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Candidate not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load candidate"})
	}

	panFile, panErr := c.FormFile("pan")
	aadhaarFile, aadhaarErr := c.FormFile("aadhaar")
	if panErr != nil || aadhaarErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Both PAN and Aadhaar required"})
	}

	uploads := []struct {
		docType models.DocumentType
		file    *multipart.FileHeader
	}{
		{models.DocumentTypePAN, panFile},
		{models.DocumentTypeAadhaar, aadhaarFile},
	}

	var (
		documents []*models.Document
		saved     []string
	)
	cleanup := func() {
		for _, path := range saved {
			if err := h.storage.DeleteFile(path); err != nil {
				h.logger.Warn("Failed to remove stored file", zap.String("path", path), zap.Error(err))
			}
		}
	}

	for _, upload := range uploads {
		if upload.file.Size > h.maxFileSize {
			cleanup()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("%s file too large. Max size: %d bytes", upload.docType, h.maxFileSize),
			})
		}

		prefix := fmt.Sprintf("%s_%s_manual", candidateID, upload.docType)
		_, path, err := h.storage.SaveFile(upload.file, prefix, manualDocumentExts...)
		if err != nil {
			cleanup()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Invalid %s file: %v", upload.docType, err),
			})
		}
		saved = append(saved, path)

		documents = append(documents, &models.Document{
			ID:               uuid.New(),
			CandidateID:      candidateID,
			Type:             upload.docType,
			Path:             path,
			OriginalFileName: upload.file.Filename,
			Source:           models.SourceManual,
			Status:           models.DocumentStatusCollected,
			CreatedAt:        time.Now(),
		})
	}

	if err := h.documents.CreateBatch(ctx, documents); err != nil {
		cleanup()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save document records",
		})
	}

	return c.JSON(fiber.Map{"message": "Documents submitted successfully"})
}
