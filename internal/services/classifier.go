package services

import (
	"strings"
	"unicode"

	"github.com/parassrivastav/traqcheck-test/internal/contact"
	"github.com/parassrivastav/traqcheck-test/internal/models"
)

// MessageKind is the tag of a classified inbound message.
type MessageKind int

const (
	KindConversational MessageKind = iota
	KindLinkCommand
	KindBinarySubmission
	KindTextSubmission
)

func (k MessageKind) String() string {
	switch k {
	case KindLinkCommand:
		return "link_command"
	case KindBinarySubmission:
		return "binary_submission"
	case KindTextSubmission:
		return "text_submission"
	default:
		return "conversational"
	}
}

const (
	linkCommand = "/start"
	// typed PAN/Aadhaar numbers are far longer; short replies are chatter
	minSubmissionChars = 6
)

// InboundMessage is a transport-neutral view of one chat message.
type InboundMessage struct {
	ChatID     string
	Handle     string
	Text       string
	Attachment *Attachment
}

// Attachment references binary content held by the chat platform.
type Attachment struct {
	FileID   string
	FileName string
	Source   models.DocumentSource
}

type Classification struct {
	Kind  MessageKind
	Token string
	// Source is set for submissions.
	Source models.DocumentSource
}

func (c Classification) IsSubmission() bool {
	return c.Kind == KindBinarySubmission || c.Kind == KindTextSubmission
}

// Classify decides what an inbound message is, in priority order: linking
// command, attached photo or file, text that looks like an id number, and
// everything else as conversation.
func Classify(msg InboundMessage) Classification {
	if token, ok := ParseLinkCommand(msg.Text); ok {
		return Classification{Kind: KindLinkCommand, Token: token}
	}

	if msg.Attachment != nil {
		return Classification{Kind: KindBinarySubmission, Source: msg.Attachment.Source}
	}

	if contact.Alphanumeric(msg.Text) >= minSubmissionChars {
		return Classification{Kind: KindTextSubmission, Source: models.SourceText}
	}

	return Classification{Kind: KindConversational}
}

// ParseLinkCommand extracts the token from "/start <token>". The command is
// case-insensitive and may carry a "@botname" suffix.
func ParseLinkCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < len(linkCommand) || !strings.EqualFold(text[:len(linkCommand)], linkCommand) {
		return "", false
	}

	rest := text[len(linkCommand):]
	if strings.HasPrefix(rest, "@") {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return "", false
		}
		rest = rest[end:]
	}

	if rest == "" || !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}

	token := strings.TrimSpace(rest)
	if token == "" {
		return "", false
	}
	return token, true
}

// InboundFromTelegram flattens a Telegram message. The largest photo size wins.
func InboundFromTelegram(msg *models.TelegramMessage) InboundMessage {
	inbound := InboundMessage{
		ChatID: chatIDString(msg.Chat.ID),
		Text:   msg.Text,
	}
	if inbound.Text == "" {
		inbound.Text = msg.Caption
	}
	if msg.From != nil {
		inbound.Handle = msg.From.Username
	}

	switch {
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		inbound.Attachment = &Attachment{FileID: photo.FileID, Source: models.SourcePhoto}
	case msg.Document != nil:
		inbound.Attachment = &Attachment{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			Source:   models.SourceFile,
		}
	}

	return inbound
}
