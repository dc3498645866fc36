package services

import (
	"fmt"
	"strings"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

// Persona is who the assistant introduces itself as.
type Persona struct {
	Name         string
	Organization string
}

type PromptBuilder struct {
	persona Persona
}

func NewPromptBuilder(persona Persona) *PromptBuilder {
	return &PromptBuilder{persona: persona}
}

func (pb *PromptBuilder) AssistantName() string {
	return pb.persona.Name
}

// StageInstruction tells the model which document it is after right now.
func StageInstruction(stage models.Stage) string {
	switch stage {
	case models.StagePAN:
		return "You are currently collecting PAN first."
	case models.StageAadhaar:
		return "You are currently collecting Aadhaar now."
	case models.StageDone:
		return "Documents are already collected."
	default:
		return "You are collecting PAN and Aadhaar documents."
	}
}

// BuildCollectionReplyPrompt creates the prompt for a conversational turn
func (pb *PromptBuilder) BuildCollectionReplyPrompt(stage models.Stage, history, userText string) string {
	if strings.TrimSpace(history) == "" {
		history = "No prior history."
	}

	return fmt.Sprintf(`You are %s from %s.
Goal: collect PAN and Aadhaar documents over Telegram with polite natural language.
%s
Stay focused on document collection and do not deviate from this agenda.
Keep replies concise (max 3 short sentences).
Conversation history:
%s
User message:
%s
Assistant reply:`,
		pb.persona.Name, pb.persona.Organization, StageInstruction(stage), history, userText)
}

// BuildResumeExtractionPrompt creates the prompt for resume field extraction
func (pb *PromptBuilder) BuildResumeExtractionPrompt(resumeText string) string {
	return fmt.Sprintf(`Extract the following information from the resume text below. Return the result as a valid JSON object with these exact keys:
- name: string
- email: string
- phone: string
- company: string (current or most recent employer)
- designation: string (current or most recent title)
- skills: array of strings
- company_history: array of objects with keys company, designation, duration

If any information is not found, use "%s" for strings or an empty array for arrays.

Resume text:
%s

JSON:`, models.NotFound, resumeText)
}

// IntroMessage greets a candidate when collection is started from the dashboard.
func (pb *PromptBuilder) IntroMessage(candidate *models.Candidate) string {
	return fmt.Sprintf("Hi %s I am %s from %s. Please provide your Aadhaar and PAN card. "+
		"You can send image, PDF, or text details. I will help you complete this verification.",
		candidate.DisplayName(), pb.persona.Name, pb.persona.Organization)
}

// ReadyMessage confirms a successful link.
func (pb *PromptBuilder) ReadyMessage(candidate *models.Candidate) string {
	return fmt.Sprintf("Hi %s, I am %s from %s. I am ready to collect your PAN and Aadhaar documents.",
		candidate.DisplayName(), pb.persona.Name, pb.persona.Organization)
}

// FormatSearchExcerpt trims an indexed resume chunk for display.
func FormatSearchExcerpt(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}
