package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/models"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
	"github.com/parassrivastav/traqcheck-test/internal/services"
)

const extractionStatusExtracted = "Extracted"

// ChatFinder locates the Telegram chat of a candidate.
type ChatFinder interface {
	ChatIDForCandidate(ctx context.Context, candidate *models.Candidate) (string, error)
}

// CollectionStarter restarts document collection in a chat.
type CollectionStarter interface {
	StartCollection(ctx context.Context, chatID string, candidate *models.Candidate) error
}

type CandidateHandlerDeps struct {
	Candidates    repositories.CandidateRepository
	Documents     repositories.DocumentRepository
	Requests      repositories.DocumentRequestRepository
	Storage       services.StorageService
	Extractor     services.ResumeExtractor
	Index         services.ResumeIndex
	PromptBuilder *services.PromptBuilder
	Chats         ChatFinder
	Collector     CollectionStarter
	BotConfigured bool
	MaxFileSize   int64
	Logger        *zap.Logger
}

type CandidateHandler struct {
	deps CandidateHandlerDeps
}

func NewCandidateHandler(deps CandidateHandlerDeps) *CandidateHandler {
	return &CandidateHandler{deps: deps}
}

func (h *CandidateHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file part",
		})
	}
	if file.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No selected file",
		})
	}
	if file.Size > h.deps.MaxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Resume file too large. Max size: %d bytes", h.deps.MaxFileSize),
		})
	}

	_, filePath, err := h.deps.Storage.SaveFile(file, "resume", ".pdf")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid file type: %v", err),
		})
	}

	ctx := c.UserContext()
	extracted, err := h.deps.Extractor.Extract(ctx, filePath)
	if err != nil {
		h.removeFile(filePath)
		status := fiber.StatusInternalServerError
		if errors.Is(err, services.ErrResumeExtraction) {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{
			"error": fmt.Sprintf("Error parsing the resume because %v", err),
			"stage": "extraction",
		})
	}

	candidate := extracted.Profile.Candidate()
	candidate.ID = uuid.New()
	candidate.ResumePath = filePath
	if err := h.deps.Candidates.Create(ctx, candidate); err != nil {
		h.removeFile(filePath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Error parsing the resume because DB save failed: %v", err),
			"stage": "db_save",
		})
	}

	messages := []string{
		"Resume uploaded successfully",
		"Extraction successful",
		"Fields have been saved to DB",
	}
	if h.deps.Index.Enabled() {
		if _, err := h.deps.Index.IndexCandidate(ctx, candidate, extracted.Text); err != nil {
			h.deps.Logger.Warn("Failed to index resume",
				zap.String("candidate_id", candidate.ID.String()),
				zap.Error(err))
		} else {
			messages = append(messages, "Resume indexed for search")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		ID:         candidate.ID.String(),
		Confidence: candidate.Confidence,
		Messages:   messages,
	})
}

func (h *CandidateHandler) HandleList(c *fiber.Ctx) error {
	candidates, err := h.deps.Candidates.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list candidates",
		})
	}

	responses := make([]models.CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		responses = append(responses, models.CandidateResponse{
			Candidate:        candidate,
			ExtractionStatus: extractionStatusExtracted,
		})
	}
	return c.JSON(responses)
}

func (h *CandidateHandler) HandleGet(c *fiber.Ctx) error {
	candidate, ferr := h.findCandidate(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	return c.JSON(models.CandidateResponse{
		Candidate:        *candidate,
		ExtractionStatus: extractionStatusExtracted,
	})
}

// HandleDelete removes the candidate, its records, stored files and index points.
func (h *CandidateHandler) HandleDelete(c *fiber.Ctx) error {
	candidate, ferr := h.findCandidate(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	ctx := c.UserContext()
	documents, err := h.deps.Documents.FindByCandidateID(ctx, candidate.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidate documents",
		})
	}

	if err := h.deps.Candidates.Delete(ctx, candidate.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Candidate not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete candidate",
		})
	}

	h.removeFile(candidate.ResumePath)
	for _, doc := range documents {
		h.removeFile(doc.Path)
	}

	if err := h.deps.Index.RemoveCandidate(ctx, candidate.ID.String()); err != nil && !errors.Is(err, services.ErrIndexDisabled) {
		h.deps.Logger.Warn("Failed to remove candidate from resume index",
			zap.String("candidate_id", candidate.ID.String()),
			zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"message": "Candidate deleted",
		"id":      candidate.ID.String(),
	})
}

func (h *CandidateHandler) HandleUpdateTelegram(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid candidate ID"})
	}

	var req models.TelegramUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	username := strings.TrimSpace(req.TelegramUsername)
	if username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "telegram_username required"})
	}

	if err := h.deps.Candidates.UpdateTelegramUsername(c.UserContext(), id, username); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Candidate not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update telegram username",
		})
	}

	return c.JSON(fiber.Map{"message": "Telegram username updated"})
}

// HandleRequestDocuments records the request and restarts collection in the
// candidate's Telegram chat.
func (h *CandidateHandler) HandleRequestDocuments(c *fiber.Ctx) error {
	candidate, ferr := h.findCandidate(c)
	if ferr != nil {
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	}

	ctx := c.UserContext()
	request := &models.DocumentRequest{
		ID:          uuid.New(),
		CandidateID: candidate.ID,
		RequestText: h.deps.PromptBuilder.IntroMessage(candidate),
		CreatedAt:   time.Now(),
	}
	if err := h.deps.Requests.Create(ctx, request); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record document request",
		})
	}
	requestID := request.ID.String()

	if !h.deps.BotConfigured {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      "Telegram bot is not configured. Set TELEGRAM_API_TOKEN or TELEGRAM_API_KEY.",
			"request_id": requestID,
		})
	}

	chatID, err := h.deps.Chats.ChatIDForCandidate(ctx, candidate)
	if err != nil {
		if errors.Is(err, services.ErrUnlinked) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"request_id":    requestID,
				"error":         "Candidate has no linked Telegram chat. Ask candidate to message the bot and send /start <phone_number> once.",
				"link_required": true,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"request_id": requestID,
			"error":      "Failed to look up candidate chat",
		})
	}

	if err := h.deps.Collector.StartCollection(ctx, chatID, candidate); err != nil {
		h.deps.Logger.Warn("Failed to start document collection",
			zap.String("candidate_id", candidate.ID.String()),
			zap.String("chat_id", chatID),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"request_id": requestID,
			"error":      fmt.Sprintf("Failed to notify candidate on Telegram: %v", err),
		})
	}

	return c.JSON(fiber.Map{
		"request_id": requestID,
		"message":    fmt.Sprintf("%s has initiated document collection on Telegram.", h.deps.PromptBuilder.AssistantName()),
	})
}

func (h *CandidateHandler) HandleSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query parameter q is required"})
	}
	limit, err := strconv.Atoi(c.Query("limit", "5"))
	if err != nil || limit <= 0 || limit > 50 {
		limit = 5
	}

	results, err := h.deps.Index.Search(c.UserContext(), query, limit)
	if err != nil {
		if errors.Is(err, services.ErrIndexDisabled) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Resume search is not configured"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to search resumes: %v", err),
		})
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"results": results,
	})
}

func (h *CandidateHandler) findCandidate(c *fiber.Ctx) (*models.Candidate, *fiber.Error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid candidate ID")
	}

	candidate, err := h.deps.Candidates.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Candidate not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to load candidate")
	}
	return candidate, nil
}

func (h *CandidateHandler) removeFile(path string) {
	if err := h.deps.Storage.DeleteFile(path); err != nil {
		h.deps.Logger.Warn("Failed to remove stored file", zap.String("path", path), zap.Error(err))
	}
}
