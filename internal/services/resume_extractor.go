package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

// ErrResumeExtraction marks failures caused by the resume itself or by a
// missing extraction backend, as opposed to transient backend errors.
var ErrResumeExtraction = errors.New("resume extraction failed")

// ExtractionConfidence is reported for every model-extracted profile.
const ExtractionConfidence = 0.95

type ResumeProfile struct {
	Name           string                  `json:"name"`
	Email          string                  `json:"email"`
	Phone          string                  `json:"phone"`
	Company        string                  `json:"company"`
	Designation    string                  `json:"designation"`
	Skills         []string                `json:"skills"`
	CompanyHistory []models.CompanyHistory `json:"company_history"`
}

type ExtractedResume struct {
	Profile ResumeProfile
	Text    string
}

type ResumeExtractor interface {
	Extract(ctx context.Context, filePath string) (*ExtractedResume, error)
}

type resumeExtractor struct {
	parser        PDFParserService
	gemini        GeminiService
	promptBuilder *PromptBuilder
	maxRetries    int
	timeout       time.Duration
}

// NewResumeExtractor builds an extractor. With a nil gemini every
// extraction fails with ErrResumeExtraction.
func NewResumeExtractor(parser PDFParserService, gemini GeminiService, promptBuilder *PromptBuilder, maxRetries int, timeout time.Duration) ResumeExtractor {
	return &resumeExtractor{
		parser:        parser,
		gemini:        gemini,
		promptBuilder: promptBuilder,
		maxRetries:    maxRetries,
		timeout:       timeout,
	}
}

func (r *resumeExtractor) Extract(ctx context.Context, filePath string) (*ExtractedResume, error) {
	content, err := r.parser.ExtractText(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read text from the resume: %v", ErrResumeExtraction, err)
	}

	if r.gemini == nil {
		return nil, fmt.Errorf("%w: no extraction backend is configured", ErrResumeExtraction)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	prompt := r.promptBuilder.BuildResumeExtractionPrompt(content.Text)
	response, err := r.gemini.GenerateJSONWithRetry(ctx, prompt, 0.1, r.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to extract resume fields: %w", err)
	}

	var profile ResumeProfile
	if err := json.Unmarshal([]byte(extractJSON(response)), &profile); err != nil {
		return nil, fmt.Errorf("%w: model returned malformed JSON: %v", ErrResumeExtraction, err)
	}
	profile.fillMissing()

	return &ExtractedResume{Profile: profile, Text: content.Text}, nil
}

func (p *ResumeProfile) fillMissing() {
	for _, field := range []*string{&p.Name, &p.Email, &p.Phone, &p.Company, &p.Designation} {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = models.NotFound
		}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.CompanyHistory == nil {
		p.CompanyHistory = []models.CompanyHistory{}
	}
}

// Candidate maps the profile onto a new candidate record.
func (p *ResumeProfile) Candidate() *models.Candidate {
	phone := p.Phone
	if phone == models.NotFound {
		phone = ""
	}
	return &models.Candidate{
		Name:           p.Name,
		Email:          p.Email,
		Phone:          phone,
		Company:        p.Company,
		Designation:    p.Designation,
		Skills:         p.Skills,
		CompanyHistory: p.CompanyHistory,
		Confidence:     ExtractionConfidence,
	}
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	// Remove markdown code blocks
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	endObj := strings.LastIndex(text, "}")
	if startObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	return strings.TrimSpace(text)
}
