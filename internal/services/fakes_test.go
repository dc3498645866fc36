package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/parassrivastav/traqcheck-test/internal/models"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
)

type memCandidates struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Candidate
}

func newMemCandidates(candidates ...*models.Candidate) *memCandidates {
	m := &memCandidates{byID: make(map[uuid.UUID]*models.Candidate)}
	for _, c := range candidates {
		_ = m.Create(context.Background(), c)
	}
	return m
}

func (m *memCandidates) Create(_ context.Context, candidate *models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	candidate.RefreshContactKeys()
	stored := *candidate
	m.byID[candidate.ID] = &stored
	return nil
}

func (m *memCandidates) FindByID(_ context.Context, id uuid.UUID) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	found := *c
	return &found, nil
}

func (m *memCandidates) FindByContactKey(_ context.Context, key string) (*models.Candidate, error) {
	return m.find(func(c *models.Candidate) bool { return key != "" && (c.PhoneKey == key || c.TelegramKey == key) })
}

func (m *memCandidates) FindByTelegramKey(_ context.Context, key string) (*models.Candidate, error) {
	return m.find(func(c *models.Candidate) bool { return key != "" && c.TelegramKey == key })
}

func (m *memCandidates) find(match func(c *models.Candidate) bool) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if match(c) {
			found := *c
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memCandidates) List(_ context.Context) ([]models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Candidate, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCandidates) UpdateTelegramUsername(_ context.Context, id uuid.UUID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.TelegramUsername = username
	c.RefreshContactKeys()
	return nil
}

func (m *memCandidates) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memLinks struct {
	mu          sync.Mutex
	byCandidate map[uuid.UUID]models.ChatLink
	upserts     int
}

func newMemLinks() *memLinks {
	return &memLinks{byCandidate: make(map[uuid.UUID]models.ChatLink)}
}

func (m *memLinks) FindByChatID(_ context.Context, chatID string) (*models.ChatLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range m.byCandidate {
		if link.ChatID == chatID {
			found := link
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memLinks) FindByCandidateID(_ context.Context, candidateID uuid.UUID) (*models.ChatLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.byCandidate[candidateID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &link, nil
}

func (m *memLinks) Upsert(_ context.Context, candidateID uuid.UUID, chatID, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, link := range m.byCandidate {
		if link.ChatID == chatID && id != candidateID {
			delete(m.byCandidate, id)
		}
	}
	m.byCandidate[candidateID] = models.ChatLink{
		CandidateID:      candidateID,
		ChatID:           chatID,
		TelegramIdentity: identity,
	}
	m.upserts++
	return nil
}

func (m *memLinks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byCandidate)
}

type memSessions struct {
	mu        sync.Mutex
	byChat    map[string]models.ChatSession
	documents []models.Document
	recordErr error
}

func newMemSessions() *memSessions {
	return &memSessions{byChat: make(map[string]models.ChatSession)}
}

func (m *memSessions) FindByChatID(_ context.Context, chatID string) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.byChat[chatID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &session, nil
}

func (m *memSessions) Upsert(_ context.Context, session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byChat[session.ChatID] = *session
	return nil
}

func (m *memSessions) Delete(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byChat, chatID)
	return nil
}

func (m *memSessions) RecordSubmission(_ context.Context, doc *models.Document, session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.documents = append(m.documents, *doc)
	m.byChat[session.ChatID] = *session
	return nil
}

func (m *memSessions) session(chatID string) (models.ChatSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.byChat[chatID]
	return session, ok
}

func (m *memSessions) docs() []models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Document(nil), m.documents...)
}

type sentMessage struct {
	ChatID string
	Text   string
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     []sentMessage
	files    map[string]*FetchedFile
	fetchErr error
	sendErr  error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{files: make(map[string]*FetchedFile)}
}

func (f *fakeChannel) SendMessage(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeChannel) FetchAttachment(_ context.Context, fileID string) (*FetchedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	file, ok := f.files[fileID]
	if !ok {
		return nil, errors.New("telegram getFile: file not found")
	}
	return file, nil
}

func (f *fakeChannel) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeChannel) last() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeChannel) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// generatorFunc adapts a function to TextGenerator.
type generatorFunc func(ctx context.Context, prompt string, temperature float32) (string, error)

func (g generatorFunc) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	return g(ctx, prompt, temperature)
}

func testPersona() Persona {
	return Persona{Name: "Mr Traqchecker", Organization: "Traqcheckjobs.com"}
}

func textUpdate(chatID int64, username, text string) *models.TelegramUpdate {
	return &models.TelegramUpdate{
		UpdateID: chatID,
		Message: &models.TelegramMessage{
			From: &models.TelegramUser{ID: chatID, Username: username},
			Chat: models.TelegramChat{ID: chatID},
			Text: text,
		},
	}
}

func photoUpdate(chatID int64, username, fileID string) *models.TelegramUpdate {
	return &models.TelegramUpdate{
		UpdateID: chatID,
		Message: &models.TelegramMessage{
			From: &models.TelegramUser{ID: chatID, Username: username},
			Chat: models.TelegramChat{ID: chatID},
			Photo: []models.TelegramPhotoSize{
				{FileID: fileID + "-small", Width: 90, Height: 90},
				{FileID: fileID, Width: 1280, Height: 960},
			},
		},
	}
}
