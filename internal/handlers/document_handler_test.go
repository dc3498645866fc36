package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/models"
	"github.com/parassrivastav/traqcheck-test/internal/services"
)

type documentFixture struct {
	app       *fiber.App
	documents *memDocumentRepo
	storage   services.StorageService
	uploadDir string
	candidate models.Candidate
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()

	candidate := models.Candidate{ID: uuid.New(), Name: "Asha Rao"}
	f := &documentFixture{
		documents: &memDocumentRepo{},
		uploadDir: t.TempDir(),
		candidate: candidate,
	}
	f.storage = services.NewStorageService(f.uploadDir)

	h := NewDocumentHandler(newMemCandidateRepo(candidate), f.documents, f.storage, 1<<20, zap.NewNop())
	f.app = fiber.New()
	api := f.app.Group("/api/v1")
	api.Post("/candidates/:id/submit-documents", h.HandleSubmit)
	api.Get("/candidates/:id/documents", h.HandleList)
	api.Get("/documents/:id/file", h.HandleFile)
	return f
}

func (f *documentFixture) storeDocument(t *testing.T, docType models.DocumentType, content string) models.Document {
	t.Helper()

	_, path, err := f.storage.SaveBytes([]byte(content), string(docType), ".txt")
	require.NoError(t, err)
	doc := models.Document{
		ID:          uuid.New(),
		CandidateID: f.candidate.ID,
		Type:        docType,
		Path:        path,
		Source:      models.SourceText,
		Status:      models.DocumentStatusCollected,
	}
	f.documents.docs = append(f.documents.docs, doc)
	return doc
}

func TestDocumentHandler_List(t *testing.T) {
	f := newDocumentFixture(t)
	pan := f.storeDocument(t, models.DocumentTypePAN, "ABCDE1234F")

	status, raw := doRequestRaw(t, f.app, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/"+f.candidate.ID.String()+"/documents", nil))

	require.Equal(t, http.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "PAN", list[0]["type"])
	assert.Equal(t, "text", list[0]["source"])
	assert.Equal(t, "/api/v1/documents/"+pan.ID.String()+"/file", list[0]["file_url"])
}

func TestDocumentHandler_ListEmpty(t *testing.T) {
	f := newDocumentFixture(t)

	status, raw := doRequestRaw(t, f.app, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/"+uuid.NewString()+"/documents", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestDocumentHandler_File(t *testing.T) {
	f := newDocumentFixture(t)
	pan := f.storeDocument(t, models.DocumentTypePAN, "ABCDE1234F")

	status, raw := doRequestRaw(t, f.app, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+pan.ID.String()+"/file", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ABCDE1234F", string(raw))

	status, _ = doRequest(t, f.app, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+uuid.NewString()+"/file", nil))
	assert.Equal(t, http.StatusNotFound, status)

	require.NoError(t, os.Remove(pan.Path))
	status, body := doRequest(t, f.app, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+pan.ID.String()+"/file", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Document file missing", body["error"])
}

func TestDocumentHandler_Submit(t *testing.T) {
	f := newDocumentFixture(t)
	target := "/api/v1/candidates/" + f.candidate.ID.String() + "/submit-documents"

	status, body := doRequest(t, f.app, multipartRequest(t, target,
		map[string]string{"pan": "pan.jpg", "aadhaar": "aadhaar.pdf"},
		map[string]string{"pan": "jpg-bytes", "aadhaar": "pdf-bytes"}))

	require.Equal(t, http.StatusOK, status, body)
	require.Len(t, f.documents.docs, 2)
	types := []models.DocumentType{f.documents.docs[0].Type, f.documents.docs[1].Type}
	assert.ElementsMatch(t, []models.DocumentType{models.DocumentTypePAN, models.DocumentTypeAadhaar}, types)
	for _, doc := range f.documents.docs {
		assert.Equal(t, models.SourceManual, doc.Source)
		assert.Equal(t, models.DocumentStatusCollected, doc.Status)
		assert.FileExists(t, doc.Path)
	}
}

func TestDocumentHandler_SubmitErrors(t *testing.T) {
	tests := []struct {
		name     string
		missing  bool
		files    map[string]string
		batchErr error
		status   int
	}{
		{"unknown candidate", true, map[string]string{"pan": "pan.jpg", "aadhaar": "a.jpg"}, nil, http.StatusNotFound},
		{"only pan", false, map[string]string{"pan": "pan.jpg"}, nil, http.StatusBadRequest},
		{"bad extension", false, map[string]string{"pan": "pan.jpg", "aadhaar": "a.exe"}, nil, http.StatusBadRequest},
		{"db failure", false, map[string]string{"pan": "pan.jpg", "aadhaar": "a.png"}, errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocumentFixture(t)
			f.documents.batchErr = tt.batchErr
			id := f.candidate.ID.String()
			if tt.missing {
				id = uuid.NewString()
			}
			contents := map[string]string{"pan": "x", "aadhaar": "y"}

			status, body := doRequest(t, f.app, multipartRequest(t, "/api/v1/candidates/"+id+"/submit-documents", tt.files, contents))

			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
			assert.Empty(t, f.documents.docs)
			entries, err := os.ReadDir(f.uploadDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "partially stored files must be removed")
		})
	}
}
