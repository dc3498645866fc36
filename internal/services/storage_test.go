package services

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageService_SaveBytes(t *testing.T) {
	dir := t.TempDir()
	s := NewStorageService(dir)

	name, path, err := s.SaveBytes([]byte("ABCDE1234F"), "cand/../pan chat", ".TXT")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), path)
	assert.Equal(t, ".txt", filepath.Ext(name))
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "..")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ABCDE1234F", string(content))
}

func TestStorageService_SaveBytesUniqueNames(t *testing.T) {
	s := NewStorageService(t.TempDir())

	first, _, err := s.SaveBytes([]byte("a"), "doc", ".jpg")
	require.NoError(t, err)
	second, _, err := s.SaveBytes([]byte("b"), "doc", ".jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStorageService_DeleteFile(t *testing.T) {
	s := NewStorageService(t.TempDir())
	_, path, err := s.SaveBytes([]byte("a"), "doc", ".txt")
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.DeleteFile(path), "missing files are not an error")
	assert.NoError(t, s.DeleteFile(""))
}

func TestStorageService_EnsureUploadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	s := NewStorageService(dir)

	require.NoError(t, s.EnsureUploadDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStorageService_SaveFileChecksExtension(t *testing.T) {
	s := NewStorageService(t.TempDir())

	pdf := multipartFile(t, "resume", "cv.PDF", "%PDF-1.4")
	_, path, err := s.SaveFile(pdf, "resume", ".pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	doc := multipartFile(t, "resume", "cv.docx", "PK")
	_, _, err = s.SaveFile(doc, "resume", ".pdf")
	assert.Error(t, err)
}

func multipartFile(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File[field][0]
}
