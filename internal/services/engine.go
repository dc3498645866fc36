package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

const (
	MsgLinkRequired     = "Please link your profile first by sending /start <phone_number_used_in_application>."
	MsgCandidateUnknown = "Could not find your profile. Please share the same phone number used in your resume application."
	MsgFirstDocument    = "Please share your PAN document first."
	MsgRetry            = "Sorry, I hit an issue. Please retry sending your PAN/Aadhaar document."
	MsgAlreadyComplete  = "Your PAN and Aadhaar documents are already collected. Thank you."

	userSpeaker = "User"
)

// Engine drives one chat turn from an inbound message to the outbound reply.
type Engine struct {
	resolver      *IdentityResolver
	sessions      *SessionManager
	strategist    *ReplyStrategist
	channel       MessageChannel
	storage       StorageService
	locker        ChatLocker
	promptBuilder *PromptBuilder
	assistantName string
	sendTimeout   time.Duration
	logger        *zap.Logger
}

func NewEngine(
	resolver *IdentityResolver,
	sessions *SessionManager,
	strategist *ReplyStrategist,
	channel MessageChannel,
	storage StorageService,
	locker ChatLocker,
	promptBuilder *PromptBuilder,
	assistantName string,
	sendTimeout time.Duration,
	logger *zap.Logger,
) *Engine {
	if sendTimeout <= 0 {
		sendTimeout = 20 * time.Second
	}
	return &Engine{
		resolver:      resolver,
		sessions:      sessions,
		strategist:    strategist,
		channel:       channel,
		storage:       storage,
		locker:        locker,
		promptBuilder: promptBuilder,
		assistantName: assistantName,
		sendTimeout:   sendTimeout,
		logger:        logger,
	}
}

// HandleInboundMessage processes one Telegram update. Updates without a
// message are ignored. The returned error is for logging only; the user has
// already been told what happened.
func (e *Engine) HandleInboundMessage(ctx context.Context, update *models.TelegramUpdate) error {
	msg := update.InboundMessage()
	if msg == nil {
		return nil
	}
	return e.HandleMessage(ctx, InboundFromTelegram(msg))
}

// HandleMessage runs a turn while holding the chat's lock, so redelivered or
// concurrent updates for the same chat never interleave.
func (e *Engine) HandleMessage(ctx context.Context, msg InboundMessage) error {
	if msg.ChatID == "" {
		return nil
	}
	return e.locker.WithLock(ctx, msg.ChatID, func(ctx context.Context) error {
		return e.handleTurn(ctx, msg)
	})
}

// StartCollection restarts collection for a candidate from the dashboard and
// greets them. Send failures are returned.
func (e *Engine) StartCollection(ctx context.Context, chatID string, candidate *models.Candidate) error {
	return e.locker.WithLock(ctx, chatID, func(ctx context.Context) error {
		if _, err := e.sessions.Reset(ctx, chatID, candidate.ID); err != nil {
			return err
		}
		if err := e.sendWithTimeout(ctx, chatID, e.promptBuilder.IntroMessage(candidate)); err != nil {
			return err
		}
		return e.sendWithTimeout(ctx, chatID, MsgFirstDocument)
	})
}

func (e *Engine) handleTurn(ctx context.Context, msg InboundMessage) error {
	class := Classify(msg)
	log := e.logger.With(zap.String("chat_id", msg.ChatID), zap.Stringer("kind", class.Kind))

	if class.Kind == KindLinkCommand {
		return e.handleLink(ctx, log, msg, class.Token)
	}

	candidate, err := e.resolver.Resolve(ctx, msg.ChatID, msg.Handle)
	if err != nil {
		if errors.Is(err, ErrUnlinked) {
			e.send(ctx, log, msg.ChatID, MsgLinkRequired)
			return nil
		}
		e.send(ctx, log, msg.ChatID, MsgRetry)
		return fmt.Errorf("resolve identity: %w", err)
	}

	session, err := e.sessions.Ensure(ctx, msg.ChatID, candidate.ID)
	if err != nil {
		e.send(ctx, log, msg.ChatID, MsgRetry)
		return err
	}

	if class.IsSubmission() {
		return e.handleSubmission(ctx, log, msg, class, candidate, session)
	}
	return e.handleConversation(ctx, log, msg, session)
}

func (e *Engine) handleLink(ctx context.Context, log *zap.Logger, msg InboundMessage, token string) error {
	candidate, err := e.resolver.Link(ctx, msg.ChatID, token, msg.Handle)
	if err != nil {
		if errors.Is(err, ErrCandidateNotFound) {
			e.send(ctx, log, msg.ChatID, MsgCandidateUnknown)
			return nil
		}
		e.send(ctx, log, msg.ChatID, MsgRetry)
		return err
	}

	if _, err := e.sessions.Reset(ctx, msg.ChatID, candidate.ID); err != nil {
		e.send(ctx, log, msg.ChatID, MsgRetry)
		return err
	}
	log.Info("chat linked", zap.String("candidate_id", candidate.ID.String()))

	e.send(ctx, log, msg.ChatID, e.promptBuilder.ReadyMessage(candidate))
	e.send(ctx, log, msg.ChatID, MsgFirstDocument)
	return nil
}

func (e *Engine) handleSubmission(
	ctx context.Context,
	log *zap.Logger,
	msg InboundMessage,
	class Classification,
	candidate *models.Candidate,
	session *models.ChatSession,
) error {
	if session.Stage.IsTerminal() {
		e.send(ctx, log, msg.ChatID, MsgAlreadyComplete)
		return nil
	}

	stage := session.Stage
	docType := stage.DocumentType()

	var (
		content  []byte
		ext      string
		note     string
		original string
	)
	if class.Kind == KindBinarySubmission {
		fetched, err := e.channel.FetchAttachment(ctx, msg.Attachment.FileID)
		if err != nil {
			e.send(ctx, log, msg.ChatID, MsgRetry)
			return fmt.Errorf("fetch attachment: %w", err)
		}
		content = fetched.Content
		ext = AttachmentExtension(msg.Attachment, fetched.RemotePath)
		original = msg.Attachment.FileName
		note = fmt.Sprintf("Uploaded %s %s", docType, class.Source)
	} else {
		content = []byte(msg.Text)
		ext = ".txt"
		note = fmt.Sprintf("Shared %s details as text", docType)
	}

	prefix := fmt.Sprintf("%s_%s_%s", candidate.ID, strings.ToLower(string(docType)), msg.ChatID)
	_, path, err := e.storage.SaveBytes(content, prefix, ext)
	if err != nil {
		e.send(ctx, log, msg.ChatID, MsgRetry)
		return fmt.Errorf("store %s document: %w", docType, err)
	}

	doc := &models.Document{
		ID:               uuid.New(),
		CandidateID:      candidate.ID,
		Type:             docType,
		Path:             path,
		OriginalFileName: original,
		Source:           class.Source,
		Status:           models.DocumentStatusCollected,
		CreatedAt:        time.Now(),
	}
	if err := e.sessions.Advance(ctx, session, doc, userSpeaker, note); err != nil {
		if rmErr := e.storage.DeleteFile(path); rmErr != nil {
			log.Warn("failed to remove orphaned document file", zap.String("path", path), zap.Error(rmErr))
		}
		e.send(ctx, log, msg.ChatID, MsgRetry)
		return err
	}
	log.Info("document collected",
		zap.String("candidate_id", candidate.ID.String()),
		zap.String("type", string(docType)),
		zap.String("stage", string(session.Stage)),
	)

	e.send(ctx, log, msg.ChatID, TransitionMessage(stage, class.Source))
	return nil
}

func (e *Engine) handleConversation(ctx context.Context, log *zap.Logger, msg InboundMessage, session *models.ChatSession) error {
	text := strings.TrimSpace(msg.Text)
	history := session.History

	if text != "" {
		if err := e.sessions.Append(ctx, msg.ChatID, userSpeaker, text); err != nil {
			e.send(ctx, log, msg.ChatID, MsgRetry)
			return err
		}
	}

	reply, err := e.strategist.Reply(ctx, session.Stage, text, history)
	if err != nil {
		log.Warn("generation backend failed, asking user to retry", zap.Error(err))
		reply = MsgRetry
	}

	if text != "" {
		if err := e.sessions.Append(ctx, msg.ChatID, e.assistantName, reply); err != nil {
			e.send(ctx, log, msg.ChatID, MsgRetry)
			return err
		}
	}

	e.send(ctx, log, msg.ChatID, reply)
	return nil
}

// TransitionMessage acknowledges a submission accepted while in stage.
func TransitionMessage(stage models.Stage, source models.DocumentSource) string {
	if source == models.SourceText {
		if stage == models.StagePAN {
			return "Text details received for PAN. Please share Aadhaar details or document now."
		}
		return "Text details received for Aadhaar. Verification documents are collected. Thank you."
	}
	if stage == models.StagePAN {
		return "PAN received. Please share your Aadhaar document now."
	}
	return "Aadhaar received. Verification documents are collected. Thank you."
}

// send delivers text without failing the turn; committed state stays as is.
func (e *Engine) send(ctx context.Context, log *zap.Logger, chatID, text string) {
	if err := e.sendWithTimeout(ctx, chatID, text); err != nil {
		log.Warn("failed to send message", zap.Error(err))
	}
}

func (e *Engine) sendWithTimeout(ctx context.Context, chatID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()
	return e.channel.SendMessage(ctx, chatID, text)
}
