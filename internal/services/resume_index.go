package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

// ErrIndexDisabled is returned when no vector store or embedding backend is configured.
var ErrIndexDisabled = errors.New("resume index is not configured")

const (
	resumeChunkSize    = 800
	resumeChunkOverlap = 100
	searchExcerptRunes = 240
)

// chunkNamespace seeds the deterministic point ids of resume chunks.
var chunkNamespace = uuid.MustParse("6f1c2a1e-4b8d-4f0e-9a53-7d2f3c6b9e10")

type ResumeIndex interface {
	Enabled() bool
	IndexCandidate(ctx context.Context, candidate *models.Candidate, resumeText string) (int, error)
	Search(ctx context.Context, query string, limit int) ([]models.CandidateSearchResult, error)
	RemoveCandidate(ctx context.Context, candidateID string) error
}

type resumeIndex struct {
	gemini  GeminiService
	qdrant  QdrantService
	chunker TextChunker
	logger  *zap.Logger
}

// NewResumeIndex returns a disabled index when either backend is nil.
func NewResumeIndex(gemini GeminiService, qdrant QdrantService, chunker TextChunker, logger *zap.Logger) ResumeIndex {
	if gemini == nil || qdrant == nil {
		return disabledResumeIndex{}
	}
	return &resumeIndex{
		gemini:  gemini,
		qdrant:  qdrant,
		chunker: chunker,
		logger:  logger,
	}
}

func (r *resumeIndex) Enabled() bool { return true }

// IndexCandidate replaces the candidate's indexed chunks and returns how many were stored.
func (r *resumeIndex) IndexCandidate(ctx context.Context, candidate *models.Candidate, resumeText string) (int, error) {
	candidateID := candidate.ID.String()
	if err := r.qdrant.DeleteCandidate(ctx, candidateID); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks: %w", err)
	}

	chunks := r.chunker.ChunkText(resumeText, resumeChunkSize, resumeChunkOverlap)
	for i, text := range chunks {
		embedding, err := r.gemini.GenerateEmbedding(ctx, text)
		if err != nil {
			return i, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		chunk := ResumeChunk{
			PointID:       uuid.NewSHA1(chunkNamespace, []byte(candidateID+":"+strconv.Itoa(i))).String(),
			CandidateID:   candidateID,
			CandidateName: candidate.Name,
			Index:         i,
			Text:          text,
		}
		if err := r.qdrant.UpsertChunk(ctx, chunk, embedding); err != nil {
			return i, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
	}

	r.logger.Info("Indexed resume",
		zap.String("candidate_id", candidateID),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Search ranks candidates by their best matching chunk.
func (r *resumeIndex) Search(ctx context.Context, query string, limit int) ([]models.CandidateSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.CandidateSearchResult{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := r.gemini.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.qdrant.SearchSimilar(ctx, embedding, limit*4)
	if err != nil {
		return nil, err
	}

	return rankCandidates(hits, limit), nil
}

func (r *resumeIndex) RemoveCandidate(ctx context.Context, candidateID string) error {
	return r.qdrant.DeleteCandidate(ctx, candidateID)
}

// rankCandidates keeps the best hit per candidate, ordered by score.
func rankCandidates(hits []SearchResult, limit int) []models.CandidateSearchResult {
	best := make(map[string]SearchResult)
	for _, hit := range hits {
		if hit.CandidateID == "" {
			continue
		}
		if current, ok := best[hit.CandidateID]; !ok || hit.Score > current.Score {
			best[hit.CandidateID] = hit
		}
	}

	results := make([]models.CandidateSearchResult, 0, len(best))
	for _, hit := range best {
		results = append(results, models.CandidateSearchResult{
			CandidateID: hit.CandidateID,
			Name:        hit.CandidateName,
			Score:       hit.Score,
			Excerpt:     FormatSearchExcerpt(hit.Text, searchExcerptRunes),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].CandidateID < results[j].CandidateID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

type disabledResumeIndex struct{}

func (disabledResumeIndex) Enabled() bool { return false }

func (disabledResumeIndex) IndexCandidate(context.Context, *models.Candidate, string) (int, error) {
	return 0, ErrIndexDisabled
}

func (disabledResumeIndex) Search(context.Context, string, int) ([]models.CandidateSearchResult, error) {
	return nil, ErrIndexDisabled
}

func (disabledResumeIndex) RemoveCandidate(context.Context, string) error {
	return ErrIndexDisabled
}
