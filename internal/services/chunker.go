package services

import (
	"strings"
	"unicode/utf8"
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText splits text into pieces of at most maxChunkSize runes, packing
// whole lines where possible and sentences when a line is too long. Each
// chunk after the first starts with the last overlap runes of the previous one.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var units []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) <= maxChunkSize {
			units = append(units, line)
			continue
		}
		for _, sentence := range splitIntoSentences(line) {
			units = append(units, hardWrap(sentence, maxChunkSize-overlap)...)
		}
	}

	var chunks []string
	var current strings.Builder
	for _, unit := range units {
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(unit) > maxChunkSize {
			prev := current.String()
			chunks = append(chunks, prev)
			current.Reset()
			if tail := getLastNChars(prev, overlap); tail != "" && utf8.RuneCountInString(tail)+1+utf8.RuneCountInString(unit) <= maxChunkSize {
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(unit)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var result []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

// hardWrap cuts text into pieces of at most size runes.
func hardWrap(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func getLastNChars(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
