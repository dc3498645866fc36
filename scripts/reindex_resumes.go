package main

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/config"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
	"github.com/parassrivastav/traqcheck-test/internal/services"
)

// Rebuilds the Qdrant resume index from the resumes stored on disk.
func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	log.Info("🚀 Starting resume reindex...")

	// Load configuration
	cfg := config.Load()
	if !cfg.ResumeIndexEnabled() {
		log.Fatal("❌ QDRANT_URL and GEMINI_API_KEY are required to build the resume index")
	}

	ctx := context.Background()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}
	candidateRepo := repositories.NewCandidateRepository(db)

	// Initialize services
	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize Gemini", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
	}
	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Fatal("❌ Failed to initialize collection", zap.Error(err))
	}

	pdfParser := services.NewPDFParserService()
	index := services.NewResumeIndex(geminiService, qdrantService, services.NewTextChunker(), log)

	candidates, err := candidateRepo.List(ctx)
	if err != nil {
		log.Fatal("❌ Failed to list candidates", zap.Error(err))
	}

	successCount := 0
	failCount := 0
	skipCount := 0

	for i := range candidates {
		candidate := &candidates[i]
		clog := log.With(zap.String("candidate_id", candidate.ID.String()), zap.String("name", candidate.Name))

		if candidate.ResumePath == "" {
			clog.Info("⏭️  No stored resume, skipping")
			skipCount++
			continue
		}
		if _, err := os.Stat(candidate.ResumePath); os.IsNotExist(err) {
			clog.Warn("⚠️  Resume file not found, skipping", zap.String("path", candidate.ResumePath))
			skipCount++
			continue
		}

		// Extract text from PDF
		content, err := pdfParser.ExtractText(candidate.ResumePath)
		if err != nil {
			clog.Error("❌ Failed to extract text", zap.Error(err))
			failCount++
			continue
		}

		chunks, err := index.IndexCandidate(ctx, candidate, content.Text)
		if err != nil {
			clog.Error("❌ Failed to index resume", zap.Int("chunks_stored", chunks), zap.Error(err))
			failCount++
			continue
		}

		clog.Info("✅ Indexed resume", zap.Int("pages", content.PageCount), zap.Int("chunks", chunks))
		successCount++
	}

	// Summary
	log.Info(strings.Repeat("=", 60))
	log.Info("📊 Reindex Summary",
		zap.Int("successful", successCount),
		zap.Int("skipped", skipCount),
		zap.Int("failed", failCount))

	if failCount > 0 {
		log.Warn("⚠️  Some resumes failed to index. Please check the logs above.")
		os.Exit(1)
	}

	log.Info("✅ All resumes indexed successfully!")
}
