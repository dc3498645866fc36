package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextChunker_ShortTextIsOneChunk(t *testing.T) {
	chunks := NewTextChunker().ChunkText("Asha Rao\n\nBackend engineer at Acme", 200, 20)

	assert.Equal(t, []string{"Asha Rao\nBackend engineer at Acme"}, chunks)
}

func TestTextChunker_EmptyText(t *testing.T) {
	assert.Empty(t, NewTextChunker().ChunkText(" \n\n ", 100, 10))
}

func TestTextChunker_RespectsMaxSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Built payment services in Go and Postgres for regional banks.\n")
	}
	b.WriteString(strings.Repeat("x", 450))

	chunks := NewTextChunker().ChunkText(b.String(), 200, 30)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 200)
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestTextChunker_Overlap(t *testing.T) {
	text := strings.Join([]string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}, "\n")

	chunks := NewTextChunker().ChunkText(text, 60, 10)

	require.Len(t, chunks, 3)
	assert.True(t, strings.HasPrefix(chunks[1], strings.Repeat("a", 10)+"\n"))
	assert.True(t, strings.HasSuffix(chunks[1], strings.Repeat("b", 40)))
}
