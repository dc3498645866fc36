package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/parassrivastav/traqcheck-test/internal/models"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
)

// SessionManager owns the per-chat collection state. Every mutation is
// written through to the repository before it returns.
type SessionManager struct {
	sessions repositories.ChatSessionRepository
}

func NewSessionManager(sessions repositories.ChatSessionRepository) *SessionManager {
	return &SessionManager{sessions: sessions}
}

// Get returns the chat's session, or nil when none exists.
func (m *SessionManager) Get(ctx context.Context, chatID string) (*models.ChatSession, error) {
	session, err := m.sessions.FindByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// Ensure returns the chat's session for candidateID, creating it at the
// first stage. A session that belongs to another candidate starts over.
func (m *SessionManager) Ensure(ctx context.Context, chatID string, candidateID uuid.UUID) (*models.ChatSession, error) {
	session, err := m.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if session != nil && session.CandidateID == candidateID && session.Stage.Valid() {
		return session, nil
	}
	return m.Reset(ctx, chatID, candidateID)
}

// Reset puts the chat back at the first stage with an empty transcript.
func (m *SessionManager) Reset(ctx context.Context, chatID string, candidateID uuid.UUID) (*models.ChatSession, error) {
	session := &models.ChatSession{
		ChatID:      chatID,
		CandidateID: candidateID,
		Stage:       models.StagePAN,
	}
	if err := m.sessions.Upsert(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	return session, nil
}

// Append adds a speaker-tagged line to the transcript. Without a session it
// does nothing.
func (m *SessionManager) Append(ctx context.Context, chatID, speaker, text string) error {
	session, err := m.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	session.History = appendTranscript(session.History, speaker, text)
	if err := m.sessions.Upsert(ctx, session); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}

// Advance records doc against the session and moves it to the next stage in
// one write. The session is updated in place only after the write succeeds.
func (m *SessionManager) Advance(ctx context.Context, session *models.ChatSession, doc *models.Document, speaker, note string) error {
	if session.Stage.IsTerminal() {
		return fmt.Errorf("session %s is already complete", session.ChatID)
	}

	next := *session
	next.Stage = session.Stage.Next()
	next.History = appendTranscript(session.History, speaker, note)

	if err := m.sessions.RecordSubmission(ctx, doc, &next); err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	*session = next
	return nil
}

func appendTranscript(history, speaker, text string) string {
	return strings.TrimSpace(history + "\n" + speaker + ": " + text)
}

// recentTranscript keeps the tail of a transcript, cut at a line boundary.
func recentTranscript(history string, limit int) string {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	tail := history[len(history)-limit:]
	if i := strings.Index(tail, "\n"); i >= 0 {
		tail = tail[i+1:]
	}
	return tail
}
