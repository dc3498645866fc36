package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

const (
	replyTemperature    = 0.2
	transcriptLimit     = 4000
	defaultReplyTimeout = 25 * time.Second
)

var ErrGeneratorUnavailable = errors.New("generation backend returned no text")

// TextGenerator is the generation backend the strategist needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
}

// ReplyStrategist produces the assistant's answer to a conversational turn.
type ReplyStrategist struct {
	generator     TextGenerator
	promptBuilder *PromptBuilder
	timeout       time.Duration
}

// NewReplyStrategist builds a strategist. A nil generator selects the
// scripted replies.
func NewReplyStrategist(generator TextGenerator, promptBuilder *PromptBuilder, timeout time.Duration) *ReplyStrategist {
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	return &ReplyStrategist{
		generator:     generator,
		promptBuilder: promptBuilder,
		timeout:       timeout,
	}
}

// Scripted reports whether replies come from fixed text only.
func (r *ReplyStrategist) Scripted() bool {
	return r.generator == nil
}

// Reply returns the outbound text for the stage. Errors only come from the
// generation backend; callers fall back to MsgRetry.
func (r *ReplyStrategist) Reply(ctx context.Context, stage models.Stage, userText, transcript string) (string, error) {
	if r.generator == nil {
		return ScriptedReply(stage), nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt := r.promptBuilder.BuildCollectionReplyPrompt(stage, recentTranscript(transcript, transcriptLimit), userText)

	type generated struct {
		text string
		err  error
	}
	// buffered so an abandoned call can still finish and exit
	done := make(chan generated, 1)
	go func() {
		text, err := r.generator.GenerateText(ctx, prompt, replyTemperature)
		done <- generated{text: text, err: err}
	}()

	var text string
	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("failed to generate reply: %w", res.err)
		}
		text = res.text
	case <-ctx.Done():
		return "", fmt.Errorf("reply generation abandoned: %w", ctx.Err())
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrGeneratorUnavailable
	}
	return text, nil
}

// ScriptedReply is the fixed text for a stage.
func ScriptedReply(stage models.Stage) string {
	switch stage {
	case models.StagePAN:
		return "Please share your PAN document (image, PDF, or text)."
	case models.StageAadhaar:
		return "Thanks. Now please share your Aadhaar document (image, PDF, or text)."
	default:
		return "Thanks. I have collected your documents."
	}
}
