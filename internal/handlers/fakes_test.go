package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parassrivastav/traqcheck-test/internal/models"
	"github.com/parassrivastav/traqcheck-test/internal/repositories"
	"github.com/parassrivastav/traqcheck-test/internal/services"
)

type memCandidateRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]models.Candidate
	createErr error
}

func newMemCandidateRepo(candidates ...models.Candidate) *memCandidateRepo {
	r := &memCandidateRepo{byID: make(map[uuid.UUID]models.Candidate)}
	for _, c := range candidates {
		r.byID[c.ID] = c
	}
	return r
}

func (r *memCandidateRepo) Create(_ context.Context, candidate *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	candidate.RefreshContactKeys()
	r.byID[candidate.ID] = *candidate
	return nil
}

func (r *memCandidateRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *memCandidateRepo) FindByContactKey(context.Context, string) (*models.Candidate, error) {
	return nil, repositories.ErrNotFound
}

func (r *memCandidateRepo) FindByTelegramKey(context.Context, string) (*models.Candidate, error) {
	return nil, repositories.ErrNotFound
}

func (r *memCandidateRepo) List(context.Context) ([]models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Candidate, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCandidateRepo) UpdateTelegramUsername(_ context.Context, id uuid.UUID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.TelegramUsername = username
	c.RefreshContactKeys()
	r.byID[id] = c
	return nil
}

func (r *memCandidateRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type memDocumentRepo struct {
	mu       sync.Mutex
	docs     []models.Document
	batchErr error
}

func (r *memDocumentRepo) Create(_ context.Context, document *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, *document)
	return nil
}

func (r *memDocumentRepo) CreateBatch(_ context.Context, documents []*models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, d := range documents {
		r.docs = append(r.docs, *d)
	}
	return nil
}

func (r *memDocumentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.ID == id {
			found := d
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memDocumentRepo) FindByCandidateID(_ context.Context, candidateID uuid.UUID) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for _, d := range r.docs {
		if d.CandidateID == candidateID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memRequestRepo struct {
	mu       sync.Mutex
	requests []models.DocumentRequest
}

func (r *memRequestRepo) Create(_ context.Context, request *models.DocumentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, *request)
	return nil
}

type stubExtractor struct {
	result *services.ExtractedResume
	err    error
}

func (s stubExtractor) Extract(context.Context, string) (*services.ExtractedResume, error) {
	return s.result, s.err
}

type stubIndex struct {
	enabled  bool
	indexed  []string
	removed  []string
	results  []models.CandidateSearchResult
	indexErr error
}

func (s *stubIndex) Enabled() bool { return s.enabled }

func (s *stubIndex) IndexCandidate(_ context.Context, candidate *models.Candidate, _ string) (int, error) {
	if !s.enabled {
		return 0, services.ErrIndexDisabled
	}
	if s.indexErr != nil {
		return 0, s.indexErr
	}
	s.indexed = append(s.indexed, candidate.ID.String())
	return 1, nil
}

func (s *stubIndex) Search(context.Context, string, int) ([]models.CandidateSearchResult, error) {
	if !s.enabled {
		return nil, services.ErrIndexDisabled
	}
	return s.results, nil
}

func (s *stubIndex) RemoveCandidate(_ context.Context, candidateID string) error {
	if !s.enabled {
		return services.ErrIndexDisabled
	}
	s.removed = append(s.removed, candidateID)
	return nil
}

type stubChats struct {
	chatID string
	err    error
}

func (s stubChats) ChatIDForCandidate(context.Context, *models.Candidate) (string, error) {
	return s.chatID, s.err
}

type stubCollector struct {
	started []string
	err     error
}

func (s *stubCollector) StartCollection(_ context.Context, chatID string, _ *models.Candidate) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, chatID)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	updates []models.TelegramUpdate
	reject  bool
}

func (s *recordingSink) Enqueue(update models.TelegramUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return false
	}
	s.updates = append(s.updates, update)
	return true
}

type stubAdmin struct {
	configured bool
	setURL     string
	setSecret  string
	err        error
	info       *models.TelegramWebhookInfo
}

func (s *stubAdmin) Configured() bool { return s.configured }

func (s *stubAdmin) SetWebhook(_ context.Context, webhookURL, secret string) error {
	if s.err != nil {
		return s.err
	}
	s.setURL, s.setSecret = webhookURL, secret
	return nil
}

func (s *stubAdmin) GetWebhookInfo(context.Context) (*models.TelegramWebhookInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func doRequestRaw(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()

	status, body := doRequestRaw(t, app, req)
	var decoded map[string]any
	if len(body) > 0 && body[0] == '{' {
		require.NoError(t, json.Unmarshal(body, &decoded))
	}
	return status, decoded
}

func jsonRequest(method, target string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, target string, files map[string]string, contents map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, filename := range files {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(contents[field]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
