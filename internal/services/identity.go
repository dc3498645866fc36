package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parassrivastav/traqcheck-test/internal/contact"
	"github.com/parassrivastav/traqcheck-test/internal/models"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
)

var (
	// ErrCandidateNotFound means a linking token matched no candidate.
	ErrCandidateNotFound = errors.New("no candidate matches the linking token")
	// ErrUnlinked means the chat has no link and its handle matches nobody.
	ErrUnlinked = errors.New("chat is not linked to a candidate")
)

// IdentityResolver maps a chat identity to a candidate.
type IdentityResolver struct {
	candidates repositories.CandidateRepository
	links      repositories.ChatLinkRepository
}

func NewIdentityResolver(
	candidates repositories.CandidateRepository,
	links repositories.ChatLinkRepository,
) *IdentityResolver {
	return &IdentityResolver{
		candidates: candidates,
		links:      links,
	}
}

// Link resolves an explicit linking token and, on a match, points chatID at
// the candidate. handle is the chat-provided username; it is stored as the
// link identity when present, the raw token otherwise.
func (r *IdentityResolver) Link(ctx context.Context, chatID, token, handle string) (*models.Candidate, error) {
	key := contact.Normalize(token)
	if key == "" {
		return nil, ErrCandidateNotFound
	}

	candidate, err := r.candidates.FindByContactKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to look up candidate: %w", err)
	}

	identity := handle
	if identity == "" {
		identity = token
	}
	if err := r.links.Upsert(ctx, candidate.ID, chatID, identity); err != nil {
		return nil, fmt.Errorf("failed to link chat: %w", err)
	}

	return candidate, nil
}

// Resolve finds the candidate for a chat without writing anything: the
// stored link wins, then the chat-provided handle.
func (r *IdentityResolver) Resolve(ctx context.Context, chatID, handle string) (*models.Candidate, error) {
	link, err := r.links.FindByChatID(ctx, chatID)
	switch {
	case err == nil:
		candidate, err := r.candidates.FindByID(ctx, link.CandidateID)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load linked candidate: %w", err)
		}
		// dangling link: the candidate was deleted, fall through to the handle
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to look up chat link: %w", err)
	}

	key := contact.NormalizeHandle(handle)
	if key == "" {
		return nil, ErrUnlinked
	}

	candidate, err := r.candidates.FindByTelegramKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnlinked
		}
		return nil, fmt.Errorf("failed to look up candidate by handle: %w", err)
	}
	return candidate, nil
}

// ChatIDForCandidate finds where to reach a candidate: its link, or a
// Telegram username or phone that is itself a numeric chat id.
func (r *IdentityResolver) ChatIDForCandidate(ctx context.Context, candidate *models.Candidate) (string, error) {
	link, err := r.links.FindByCandidateID(ctx, candidate.ID)
	if err == nil && link.ChatID != "" {
		return link.ChatID, nil
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return "", fmt.Errorf("failed to look up chat link: %w", err)
	}

	for _, identity := range []string{candidate.TelegramUsername, candidate.Phone} {
		if contact.IsNumericChatID(identity) {
			return strings.TrimSpace(identity), nil
		}
	}
	return "", ErrUnlinked
}
